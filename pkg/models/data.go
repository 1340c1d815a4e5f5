package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// RowData holds the user-defined column values of a stored row
type RowData map[string]interface{}

// Helper methods for RowData
func (d RowData) GetString(key string) string {
	if val, ok := d[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetNumber reads a value loosely as a number. Stored values may be JSON
// numbers or numeric strings depending on how the row was written.
func (d RowData) GetNumber(key string) (float64, bool) {
	val, ok := d[key]
	if !ok || val == nil {
		return 0, false
	}
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// GetBool reads a value loosely as a boolean. Accepts real booleans,
// "true"/"false" strings and nonzero numbers.
func (d RowData) GetBool(key string) bool {
	val, ok := d[key]
	if !ok || val == nil {
		return false
	}
	switch v := val.(type) {
	case bool:
		return v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "true" || s == "1" || s == "yes"
	default:
		if f, ok := d.GetNumber(key); ok {
			return f != 0
		}
	}
	return false
}

func (d RowData) Get(key string) interface{} {
	return d[key]
}

func (d RowData) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Clone returns a shallow copy safe to mutate key-wise
func (d RowData) Clone() RowData {
	out := make(RowData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// DecodeRowData parses a stored JSON blob. Malformed or empty blobs decode
// to an empty map, never an error.
func DecodeRowData(blob string) RowData {
	if blob == "" {
		return RowData{}
	}
	var out RowData
	if err := json.Unmarshal([]byte(blob), &out); err != nil || out == nil {
		return RowData{}
	}
	return out
}

// EncodeRowData serializes row data for storage
func EncodeRowData(data RowData) (string, error) {
	if data == nil {
		data = RowData{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Row is one stored record of a user table. Only these fields are physical
// columns; everything user-defined lives in Data.
type Row struct {
	ID        string    `json:"id"`
	TableID   string    `json:"table_id"`
	Data      RowData   `json:"data"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MassDeleteRequest deletes a set of rows from one table in one call
type MassDeleteRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// Flatten merges system fields and data into one map, the shape the public
// API serves. Data keys never shadow system fields.
func (r *Row) Flatten(tableName, tableType string) map[string]interface{} {
	out := make(map[string]interface{}, len(r.Data)+6)
	for k, v := range r.Data {
		out[k] = v
	}
	out["id"] = r.ID
	out["tableId"] = r.TableID
	out["tableName"] = tableName
	out["tableType"] = tableType
	out["createdAt"] = r.CreatedAt
	out["updatedAt"] = r.UpdatedAt
	return out
}
