package identity

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Canonicalize turns a set of named identifier values into the stable byte
// string the hasher consumes: a JSON object with lexicographically sorted
// keys and every value coerced to its string form.
//
// Absent and null values are dropped rather than encoded as a sentinel,
// so "field present but null" and "field absent" canonicalize identically.
// That matches activation, which never stages a missing secret.
func Canonicalize(values map[string]interface{}) string {
	keys := make([]string, 0, len(values))
	for k, v := range values {
		if v == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(coerceString(values[k]))
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return string(buf)
}

func coerceString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
