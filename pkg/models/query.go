package models

import (
	"github.com/erimeilis/store-sub004/pkg/constants"
)

// ListOptions carries filter, sort and pagination parameters for row queries
type ListOptions struct {
	Filters map[string]string
	Sort    string
	Dir     string // asc | desc
	Page    int    // 1-based
	Limit   int
}

// Normalize clamps pagination and sort direction into valid ranges
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit <= 0 {
		o.Limit = constants.DefaultPageSize
	}
	if o.Limit > constants.MaxPageSize {
		o.Limit = constants.MaxPageSize
	}
	if o.Dir != "desc" {
		o.Dir = "asc"
	}
	return o
}

// Offset converts page/limit into a row offset
func (o ListOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}

// PageInfo is the pagination envelope of list responses. Field names follow
// the public API wire format.
type PageInfo struct {
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
}

// NewPageInfo computes the has-more flag from totals
func NewPageInfo(total, page, limit int) PageInfo {
	return PageInfo{
		Total:   total,
		Page:    page,
		Limit:   limit,
		HasMore: page*limit < total,
	}
}

// RequiredColumn is one column a table type demands, in declared order
type RequiredColumn struct {
	Name     string               `json:"name"`
	Type     constants.ColumnType `json:"type"`
	Required bool                 `json:"required"`
}

// ColumnMapping pairs a required column with an existing column, or marks
// it for creation when Source is nil.
type ColumnMapping struct {
	Target     string  `json:"target"`
	Source     *string `json:"source,omitempty"`
	Confidence int     `json:"confidence"`
}

// ConversionPreview is the dry-run answer of a table type conversion.
// AllMapped is true when every required column found an existing match.
type ConversionPreview struct {
	TableID         string              `json:"table_id"`
	CurrentType     constants.TableType `json:"current_type"`
	TargetType      constants.TableType `json:"target_type"`
	RequiredColumns []RequiredColumn    `json:"required_columns"`
	ExistingColumns []string            `json:"existing_columns"`
	Mappings        []ColumnMapping     `json:"mappings"`
	AllMapped       bool                `json:"all_mapped"`
}

// ApplyConversionRequest applies a conversion. Mappings maps required column
// name to existing column name; required columns absent from the map are
// created fresh.
type ApplyConversionRequest struct {
	TargetType   string            `json:"target_type" binding:"required"`
	Mappings     map[string]string `json:"mappings,omitempty"`
	RentalPeriod *int              `json:"rental_period,omitempty"`
}

// RenamedColumn records one rename performed by a conversion
type RenamedColumn struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ConversionResult summarizes what a conversion changed
type ConversionResult struct {
	TableID  string              `json:"table_id"`
	FromType constants.TableType `json:"from_type"`
	ToType   constants.TableType `json:"to_type"`
	Renamed  []RenamedColumn     `json:"renamed"`
	Created  []string            `json:"created"`
	Modified []string            `json:"modified"`
}

// ConsoleRequest carries one SQL statement for the admin console
type ConsoleRequest struct {
	SQL string `json:"sql" binding:"required"`
}

// ConsoleResult is the admin SQL console answer. SQL echoes the statement
// as executed, including an injected row cap.
type ConsoleResult struct {
	SQL   string                   `json:"sql"`
	Rows  []map[string]interface{} `json:"rows"`
	Count int                      `json:"count"`
}
