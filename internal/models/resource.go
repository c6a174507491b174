package models

// Resource is an upstream timeline item or location in its raw JSON form.
// It is passed to demo modules unmodified.
type Resource map[string]any

// String returns the string value at key, or "" when absent or not a string.
func (r Resource) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Float returns the numeric value at key. Values decoded from JSON arrive as
// float64; ints are accepted for resources built in code.
func (r Resource) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// ID returns the resource's upstream id.
func (r Resource) ID() string {
	return r.String("id")
}
