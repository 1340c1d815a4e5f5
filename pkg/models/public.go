package models

// Public API response shapes. These keep the camelCase field names external
// integrations already consume, independent of the internal snake_case.

// PublicTable is the table card served to token holders
type PublicTable struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	TableType   string  `json:"tableType"`
	RowCount    int     `json:"rowCount"`
}

// PublicTables lists the tables one token can reach
type PublicTables struct {
	Tables []PublicTable `json:"tables"`
	Count  int           `json:"count"`
}

// PublicSearch answers a column-presence search
type PublicSearch struct {
	Tables          []PublicTable `json:"tables"`
	Count           int           `json:"count"`
	SearchedColumns []string      `json:"searchedColumns"`
}

// PublicItems is one table's item listing, flat or nested
type PublicItems struct {
	Items     []map[string]interface{} `json:"items"`
	TableID   string                   `json:"tableId"`
	TableName string                   `json:"tableName"`
	TableType string                   `json:"tableType"`
	Count     int                      `json:"count"`
}

// PublicPagination is the pagination block of cross-table record queries
type PublicPagination struct {
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
}

// PublicRecords carries one page of flattened cross-table records
type PublicRecords struct {
	Records    []map[string]interface{} `json:"records"`
	Count      int                      `json:"count"`
	Total      int                      `json:"total"`
	Pagination PublicPagination         `json:"pagination"`
	Filters    map[string]string        `json:"filters,omitempty"`
}

// PublicValues lists the distinct values of one column across tables
type PublicValues struct {
	Column        string            `json:"column"`
	Values        []string          `json:"values"`
	Count         int               `json:"count"`
	Filters       map[string]string `json:"filters,omitempty"`
	TablesSampled []string          `json:"tablesSampled"`
}

// PublicAvailability answers a stock probe for one item
type PublicAvailability struct {
	Available    bool    `json:"available"`
	AvailableQty float64 `json:"availableQty"`
	RequestedQty float64 `json:"requestedQty"`
}
