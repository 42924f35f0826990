package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/skosovsky/toolround"
)

type funcTool[In, Out any] struct {
	spec toolround.ToolSpec
	fn   func(context.Context, In) (Out, error)
}

// Func returns a Tool whose parameter schema is inferred from In.
// Struct fields without omitempty are required; the jsonschema tag gives the description.
func Func[In, Out any](name, description string, fn func(ctx context.Context, in In) (Out, error)) (Tool, error) {
	if name == "" || fn == nil {
		return nil, ErrInvalidTool
	}
	s, err := jsonschema.For[In](nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidSchema, name, err)
	}
	params, err := schemaMap(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidSchema, name, err)
	}
	return &funcTool[In, Out]{
		spec: toolround.ToolSpec{Name: name, Description: description, Parameters: params},
		fn:   fn,
	}, nil
}

func (t *funcTool[In, Out]) Spec() toolround.ToolSpec { return t.spec }

func (t *funcTool[In, Out]) Call(ctx context.Context, args map[string]any) (any, error) {
	var in In
	b, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArguments, err)
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArguments, err)
	}
	return t.fn(ctx, in)
}

// Static is a Tool with a fixed declaration backed by a plain function.
type Static struct {
	Declaration toolround.ToolSpec
	Fn          func(ctx context.Context, args map[string]any) (any, error)
}

// Spec returns the fixed declaration.
func (s Static) Spec() toolround.ToolSpec { return s.Declaration }

// Call runs Fn.
func (s Static) Call(ctx context.Context, args map[string]any) (any, error) {
	return s.Fn(ctx, args)
}
