// Package cast converts loosely typed JSON values (schema maps, tool arguments) to concrete types.
package cast

import "encoding/json"

// ToStringSlice converts v to []string. Accepts []string or []any where each element is string.
// YAML and JSON decoders produce []any for schema "required" lists; Go literals use []string.
func ToStringSlice(v any) ([]string, bool) {
	if ss, ok := v.([]string); ok {
		return ss, true
	}
	slice, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(slice))
	for _, e := range slice {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// ToMap converts v to a JSON object map. map[string]any is returned as is;
// raw JSON and other values are round-tripped through encoding/json.
// Returns false for nil, JSON null and non-object values.
func ToMap(v any) (map[string]any, bool) {
	var data []byte
	switch x := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return x, true
	case json.RawMessage:
		data = x
	case []byte:
		data = x
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, false
		}
		data = b
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil || out == nil {
		return nil, false
	}
	return out, true
}
