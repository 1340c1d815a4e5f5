package query

import "strings"

// JSONPath builds the JSON path addressing one key of the data blob.
// The key is quoted so names with spaces or dots stay a single member.
// Paths are always bound as parameters, never inlined into SQL.
func JSONPath(key string) string {
	escaped := strings.ReplaceAll(key, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `$."` + escaped + `"`
}
