package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/skosovsky/toolround"
	"github.com/skosovsky/toolround/internal/cast"
)

// Sentinel errors for tool registration and argument checks.
var (
	ErrInvalidTool      = errors.New("tools: tool must have a name")
	ErrDuplicateTool    = errors.New("tools: tool already registered")
	ErrInvalidSchema    = errors.New("tools: tool parameter schema is invalid")
	ErrInvalidArguments = errors.New("tools: arguments do not match the tool schema")
)

// Tool is a named, described operation the model may call.
type Tool interface {
	Spec() toolround.ToolSpec
	Call(ctx context.Context, args map[string]any) (any, error)
}

type entry struct {
	tool     Tool
	spec     toolround.ToolSpec
	resolved *jsonschema.Resolved // nil when the tool declares no parameters
}

// Registry is a ToolExecutor over registered tools. Arguments are validated
// against each tool's JSON schema before the tool runs. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]entry
}

// NewRegistry returns a Registry holding tools, in order.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]entry)}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds t. Names must be non-empty and unique.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return ErrInvalidTool
	}
	spec := t.Spec()
	if spec.Name == "" {
		return ErrInvalidTool
	}
	var resolved *jsonschema.Resolved
	if spec.Parameters != nil {
		var err error
		resolved, err = resolveSchema(spec.Parameters)
		if err != nil {
			return fmt.Errorf("%w: %q: %w", ErrInvalidSchema, spec.Name, err)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tools == nil {
		r.tools = make(map[string]entry)
	}
	if _, ok := r.tools[spec.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, spec.Name)
	}
	r.tools[spec.Name] = entry{tool: t, spec: spec, resolved: resolved}
	r.order = append(r.order, spec.Name)
	return nil
}

// Specs returns the declarations of all tools in registration order.
func (r *Registry) Specs() []toolround.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]toolround.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].spec)
	}
	return out
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Execute implements toolround.ToolExecutor.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", toolround.ErrUnknownTool, name)
	}
	if args == nil {
		args = make(map[string]any)
	}
	if err := e.validate(args); err != nil {
		return nil, err
	}
	return e.tool.Call(ctx, args)
}

func (e entry) validate(args map[string]any) error {
	var missing []string
	for _, p := range e.spec.RequiredParams() {
		if v, ok := args[p]; !ok || v == nil {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", toolround.ErrMissingArgument, missing)
	}
	if e.resolved == nil {
		return nil
	}
	if err := e.resolved.Validate(args); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArguments, err)
	}
	return nil
}

func resolveSchema(params map[string]any) (*jsonschema.Resolved, error) {
	b, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return s.Resolve(nil)
}

// schemaMap converts a jsonschema.Schema into the map form carried by ToolSpec.
func schemaMap(s *jsonschema.Schema) (map[string]any, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	m, ok := cast.ToMap(json.RawMessage(b))
	if !ok {
		return nil, fmt.Errorf("schema is not a JSON object")
	}
	return m, nil
}

// Compile-time check that Registry implements toolround.ToolExecutor.
var _ toolround.ToolExecutor = (*Registry)(nil)
