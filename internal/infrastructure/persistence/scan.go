package persistence

import (
	"database/sql"
	"time"
)

// Scan helpers shared by the repositories. The MySQL driver returns
// time.Time (parseTime=True) while SQLite hands back text, so timestamps
// are read through asTime.

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func asTime(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case []byte:
		return parseTimeString(string(t))
	case string:
		return parseTimeString(t)
	}
	return time.Time{}
}

func parseTimeString(s string) time.Time {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return ""
}

// nullableTime converts *time.Time for storage, NULL when absent
func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

// nullableString converts *string for storage, NULL when absent
func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// nullableInt converts *int for storage, NULL when absent
func nullableInt(i *int) interface{} {
	if i == nil {
		return nil
	}
	return *i
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
