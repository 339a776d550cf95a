package section

import "strconv"

// String reads m[key] as display text. Numbers are formatted; anything else
// that is not a string reads as "".
func String(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	return text(m[key])
}

func text(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// Records reads m[key] as a list of records.
// A non-list value yields nil; a non-record element reads as an empty record.
func Records(m map[string]any, key string) []map[string]any {
	if m == nil {
		return nil
	}
	var raw []any
	switch v := m[key].(type) {
	case []any:
		raw = v
	case []map[string]any:
		return v
	default:
		return nil
	}
	out := make([]map[string]any, len(raw))
	for i, item := range raw {
		rec, ok := item.(map[string]any)
		if !ok {
			rec = map[string]any{}
		}
		out[i] = rec
	}
	return out
}

// Strings reads m[key] as a list of display strings.
func Strings(m map[string]any, key string) []string {
	if m == nil {
		return nil
	}
	var raw []any
	switch v := m[key].(type) {
	case []any:
		raw = v
	case []string:
		return v
	default:
		return nil
	}
	out := make([]string, len(raw))
	for i, item := range raw {
		out[i] = text(item)
	}
	return out
}
