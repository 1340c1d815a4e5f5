package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMySQLJSONFilter(t *testing.T) {
	d := MySQLDialect{}

	t.Run("numeric value matches both representations", func(t *testing.T) {
		sql, params := d.JSONFilter("qty", "100")
		assert.Equal(t, "(JSON_EXTRACT(`data`, ?) = CAST(? AS JSON) OR JSON_EXTRACT(`data`, ?) = CAST(? AS JSON))", sql)
		assert.Equal(t, []interface{}{`$."qty"`, "100", `$."qty"`, `"100"`}, params)
	})

	t.Run("boolean value matches both representations", func(t *testing.T) {
		sql, params := d.JSONFilter("available", "true")
		assert.Contains(t, sql, "OR")
		assert.Equal(t, []interface{}{`$."available"`, "true", `$."available"`, `"true"`}, params)
	})

	t.Run("plain string is a single exact match", func(t *testing.T) {
		sql, params := d.JSONFilter("country", "UK")
		assert.Equal(t, "JSON_EXTRACT(`data`, ?) = CAST(? AS JSON)", sql)
		assert.Equal(t, []interface{}{`$."country"`, `"UK"`}, params)
	})

	t.Run("malformed value is treated as a literal string", func(t *testing.T) {
		sql, params := d.JSONFilter("qty", "12abc")
		assert.NotContains(t, sql, "OR")
		assert.Equal(t, []interface{}{`$."qty"`, `"12abc"`}, params)
	})
}

func TestSQLiteJSONFilter(t *testing.T) {
	d := SQLiteDialect{}

	t.Run("numeric value binds a typed parameter", func(t *testing.T) {
		sql, params := d.JSONFilter("qty", "100")
		assert.Equal(t, "(json_extract(`data`, ?) = ? OR json_extract(`data`, ?) = ?)", sql)
		assert.Equal(t, []interface{}{`$."qty"`, 100.0, `$."qty"`, "100"}, params)
	})

	t.Run("boolean value checks json_type", func(t *testing.T) {
		sql, params := d.JSONFilter("available", "true")
		assert.Contains(t, sql, "json_type")
		assert.Equal(t, []interface{}{`$."available"`, "true", `$."available"`, "true"}, params)
	})

	t.Run("plain string is a single exact match", func(t *testing.T) {
		sql, params := d.JSONFilter("country", "UK")
		assert.Equal(t, "json_extract(`data`, ?) = ?", sql)
		assert.Equal(t, []interface{}{`$."country"`, "UK"}, params)
	})
}

func TestForUpdateSuffix(t *testing.T) {
	assert.Equal(t, " FOR UPDATE", MySQLDialect{}.ForUpdate())
	assert.Equal(t, "", SQLiteDialect{}.ForUpdate())
}
