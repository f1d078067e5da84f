// Package payload resolves dot-separated paths against decoded JSON values.
package payload

import (
	"encoding/json"
	"strconv"

	"github.com/oarkflow/dipper"
)

// Extract walks path ("data.user.id") through the decoded payload and
// returns the value at the leaf. ok is false when any intermediate is not
// a traversable container or the final key is absent. Dots inside keys and
// array indexing are not supported; the provider set is closed and none of
// them need either.
func Extract(data interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}
	value, err := dipper.Get(data, path)
	if err != nil {
		return nil, false
	}
	return value, true
}

// ExtractString is Extract with the scalar coerced to a string, for
// conversation ids and other fields consumed as text.
func ExtractString(data interface{}, path string) (string, bool) {
	value, ok := Extract(data, path)
	if !ok || value == nil {
		return "", false
	}
	return stringify(value), true
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
