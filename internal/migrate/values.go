// Package migrate upgrades loosely-typed persisted records (old schema
// versions, imported files, remote documents) into the current schema shape.
// Migration never fails: every field has a defined default and malformed
// values fall back to it.
package migrate

// The helpers below read a value out of a decoded-JSON (or Firestore
// document) map, tolerating any actual type.

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

func asSlice(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	return nil
}

func getString(m map[string]any, key, def string) string {
	if m == nil {
		return def
	}
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return def
}

// getText is getString without the empty-string fallback: an explicit empty
// string survives migration unchanged.
func getText(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func getBool(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	b, _ := m[key].(bool)
	return b
}

func getInt(m map[string]any, key string, def int) int {
	if m == nil {
		return def
	}
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return def
	}
}

func getInt64(m map[string]any, key string, def int64) int64 {
	if m == nil {
		return def
	}
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	default:
		return def
	}
}

func getStringSlice(m map[string]any, key string) []string {
	out := []string{}
	if m == nil {
		return out
	}
	for _, v := range asSlice(m[key]) {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// clampTone forces a tone scalar into the 1-10 range, defaulting to the
// midpoint for anything unusable.
func clampTone(m map[string]any, key string) int {
	v := getInt(m, key, toneMidpoint)
	if v < 1 || v > 10 {
		return toneMidpoint
	}
	return v
}
