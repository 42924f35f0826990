package cast

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToStringSlice(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		v    any
		want []string
		ok   bool
	}{
		{"string slice", []string{"query", "course_name"}, []string{"query", "course_name"}, true},
		{"any slice", []any{"query"}, []string{"query"}, true},
		{"empty any slice", []any{}, []string{}, true},
		{"mixed any slice", []any{"query", 1}, nil, false},
		{"string", "query", nil, false},
		{"nil", nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ToStringSlice(tt.v)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToMap(t *testing.T) {
	t.Parallel()
	type schema struct {
		Type     string   `json:"type"`
		Required []string `json:"required"`
	}
	tests := []struct {
		name string
		v    any
		want map[string]any
		ok   bool
	}{
		{"map", map[string]any{"type": "object"}, map[string]any{"type": "object"}, true},
		{"raw message", json.RawMessage(`{"type":"object"}`), map[string]any{"type": "object"}, true},
		{"bytes", []byte(`{"type":"string"}`), map[string]any{"type": "string"}, true},
		{"struct", schema{Type: "object", Required: []string{"q"}}, map[string]any{"type": "object", "required": []any{"q"}}, true},
		{"null", json.RawMessage(`null`), nil, false},
		{"array", json.RawMessage(`[1,2]`), nil, false},
		{"nil", nil, nil, false},
		{"unmarshalable", func() {}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ToMap(tt.v)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
