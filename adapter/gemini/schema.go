package gemini

import (
	"fmt"

	"google.golang.org/genai"

	"github.com/skosovsky/toolround/internal/cast"
)

// mapToGenaiSchema converts a JSON Schema map to genai.Schema.
// Handles type, description, properties, items, required and enum, recursing into objects and arrays.
func mapToGenaiSchema(m map[string]any) (*genai.Schema, error) {
	if m == nil {
		return nil, nil
	}
	s := &genai.Schema{}
	if t, ok := m["type"].(string); ok && t != "" {
		typ, err := jsonSchemaTypeToGenai(t)
		if err != nil {
			return nil, err
		}
		s.Type = typ
	}
	if desc, ok := m["description"].(string); ok {
		s.Description = desc
	}
	if p, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(p))
		for k, v := range p {
			sub, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("property %q: not an object", k)
			}
			conv, err := mapToGenaiSchema(sub)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", k, err)
			}
			s.Properties[k] = conv
		}
	}
	if required, ok := cast.ToStringSlice(m["required"]); ok {
		s.Required = required
	}
	if items, ok := m["items"].(map[string]any); ok {
		conv, err := mapToGenaiSchema(items)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		s.Items = conv
	}
	if enum, ok := cast.ToStringSlice(m["enum"]); ok {
		s.Enum = enum
	}
	return s, nil
}

func jsonSchemaTypeToGenai(t string) (genai.Type, error) {
	switch t {
	case "string":
		return genai.TypeString, nil
	case "number":
		return genai.TypeNumber, nil
	case "integer":
		return genai.TypeInteger, nil
	case "boolean":
		return genai.TypeBoolean, nil
	case "array":
		return genai.TypeArray, nil
	case "object":
		return genai.TypeObject, nil
	default:
		return genai.TypeUnspecified, fmt.Errorf("unsupported schema type %q", t)
	}
}
