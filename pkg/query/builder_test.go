package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilderSelect(t *testing.T) {
	tests := []struct {
		name           string
		build          func() QueryResult
		expectedSQL    string
		expectedParams []interface{}
	}{
		{
			name: "Plain Select All",
			build: func() QueryResult {
				return From("table_data").Build()
			},
			expectedSQL:    "SELECT * FROM `table_data`",
			expectedParams: []interface{}{},
		},
		{
			name: "Select Fields With Where",
			build: func() QueryResult {
				return From("table_data").
					Select([]string{"id", "data"}).
					Where("`table_id` = ?", "t1").
					Build()
			},
			expectedSQL:    "SELECT `table_data`.`id`, `table_data`.`data` FROM `table_data` WHERE `table_id` = ?",
			expectedParams: []interface{}{"t1"},
		},
		{
			name: "Order Limit Offset",
			build: func() QueryResult {
				return From("table_data").
					Where("`table_id` = ?", "t1").
					OrderBy("created_at", "desc").
					OrderBy("id", "asc").
					Limit(50).
					Offset(100).
					Build()
			},
			expectedSQL:    "SELECT * FROM `table_data` WHERE `table_id` = ? ORDER BY `table_data`.`created_at` DESC, `table_data`.`id` ASC LIMIT 50 OFFSET 100",
			expectedParams: []interface{}{"t1"},
		},
		{
			name: "Offset Without Limit Is Ignored",
			build: func() QueryResult {
				return From("sales").Offset(10).Build()
			},
			expectedSQL:    "SELECT * FROM `sales`",
			expectedParams: []interface{}{},
		},
		{
			name: "Where In",
			build: func() QueryResult {
				return From("user_tables").
					WhereIn("id", []string{"a", "b", "c"}).
					Build()
			},
			expectedSQL:    "SELECT * FROM `user_tables` WHERE `id` IN (?, ?, ?)",
			expectedParams: []interface{}{"a", "b", "c"},
		},
		{
			name: "Where In Empty Matches Nothing",
			build: func() QueryResult {
				return From("user_tables").WhereIn("id", nil).Build()
			},
			expectedSQL:    "SELECT * FROM `user_tables` WHERE 1 = 0",
			expectedParams: []interface{}{},
		},
		{
			name: "Group By With Raw Select",
			build: func() QueryResult {
				return From("table_data").
					AddSelectRaw("`table_id`").
					AddSelectRaw("COUNT(*)", "cnt").
					WhereIn("table_id", []string{"t1", "t2"}).
					GroupBy("table_id").
					Build()
			},
			expectedSQL:    "SELECT `table_id`, COUNT(*) as `cnt` FROM `table_data` WHERE `table_id` IN (?, ?) GROUP BY `table_data`.`table_id`",
			expectedParams: []interface{}{"t1", "t2"},
		},
		{
			name: "Join",
			build: func() QueryResult {
				return From("rentals").
					AddSelectRaw("`rentals`.*").
					AddSelectRaw("`t`.`rental_period`").
					Join("INNER", "user_tables", "t", "`t`.`id` = `rentals`.`table_id`").
					Where("`rentals`.`status` = ?", "active").
					Build()
			},
			expectedSQL:    "SELECT `rentals`.*, `t`.`rental_period` FROM `rentals` INNER JOIN `user_tables` as `t` ON `t`.`id` = `rentals`.`table_id` WHERE `rentals`.`status` = ?",
			expectedParams: []interface{}{"active"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.build()
			assert.Equal(t, tt.expectedSQL, result.SQL)
			assert.Equal(t, tt.expectedParams, result.Params)
		})
	}
}

func TestBuilderInsertIsDeterministic(t *testing.T) {
	result := Insert("sales", map[string]interface{}{
		"id":          "s1",
		"sale_number": "SALE-2024-001",
		"quantity":    2,
	}).Build()

	assert.Equal(t, "INSERT INTO `sales` (`id`, `quantity`, `sale_number`) VALUES (?, ?, ?)", result.SQL)
	assert.Equal(t, []interface{}{"s1", 2, "SALE-2024-001"}, result.Params)
}

func TestBuilderUpdate(t *testing.T) {
	result := Update("table_data").
		Set(map[string]interface{}{"data": `{"qty":5}`, "updated_at": "now"}).
		Where("`id` = ?", "r1").
		Where("`table_id` = ?", "t1").
		Build()

	assert.Equal(t, "UPDATE `table_data` SET `data` = ?, `updated_at` = ? WHERE `id` = ? AND `table_id` = ?", result.SQL)
	assert.Equal(t, []interface{}{`{"qty":5}`, "now", "r1", "t1"}, result.Params)
}

func TestBuilderDelete(t *testing.T) {
	result := Delete("table_columns").
		Where("`table_id` = ?", "t1").
		Build()

	assert.Equal(t, "DELETE FROM `table_columns` WHERE `table_id` = ?", result.SQL)
	assert.Equal(t, []interface{}{"t1"}, result.Params)
}

func TestJSONPath(t *testing.T) {
	assert.Equal(t, `$."qty"`, JSONPath("qty"))
	assert.Equal(t, `$."unit price"`, JSONPath("unit price"))
	assert.Equal(t, `$."a\"b"`, JSONPath(`a"b`))
	assert.Equal(t, `$."a\\b"`, JSONPath(`a\b`))
}
