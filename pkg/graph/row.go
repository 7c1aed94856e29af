package graph

import "fmt"

// String returns value of key as string. Non string value is formatted by fmt.
func (x Row) String(key string) string {
	v, ok := x[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Int returns value of key as int64. Unknown types are 0.
func (x Row) Int(key string) int64 {
	switch v := x[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Strings returns value of key as string slice.
func (x Row) Strings(key string) []string {
	switch v := x[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}
