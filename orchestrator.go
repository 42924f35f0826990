package toolround

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Orchestrator answers requests with at most one round of tool calls.
// Fields are set at construction and never mutated, so one instance may serve concurrent callers.
type Orchestrator struct {
	backend      Backend
	model        string
	systemPrompt string
	contextLimit int
	tokenCounter TokenCounter
	system       *systemRenderer
}

// Exchange is the outcome of one orchestrated call.
type Exchange struct {
	ID           string
	Text         string
	Turns        []Turn // Full conversation as sent on the last backend request
	BackendCalls int
	ToolCalls    int
}

// New returns an Orchestrator over backend. Returns ErrNilBackend if backend is nil.
func New(backend Backend, opts ...Option) (*Orchestrator, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	o := &Orchestrator{
		backend:      backend,
		model:        DefaultModel,
		systemPrompt: DefaultSystemPrompt,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.tokenCounter == nil {
		o.tokenCounter = &CharFallbackCounter{}
	}
	system, err := newSystemRenderer(o.systemPrompt, o.contextLimit, o.tokenCounter)
	if err != nil {
		return nil, err
	}
	o.system = system
	return o, nil
}

// Model returns the configured model name.
func (o *Orchestrator) Model() string { return o.model }

// Generate answers req and returns the final text.
// exec may be nil, or an interface holding a nil pointer or func; then no tool round happens.
func (o *Orchestrator) Generate(ctx context.Context, req Request, exec ToolExecutor) (string, error) {
	ex, err := o.Run(ctx, req, exec)
	if err != nil {
		return "", err
	}
	return ex.Text, nil
}

// Run answers req like Generate and also returns the conversation it built.
func (o *Orchestrator) Run(ctx context.Context, req Request, exec ToolExecutor) (*Exchange, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	system, err := o.system.Render(req.PriorContext)
	if err != nil {
		return nil, err
	}
	id, ok := ExchangeIDFromContext(ctx)
	if !ok {
		id = uuid.NewString()
		ctx = WithExchangeID(ctx, id)
	}
	ex := &Exchange{
		ID: id,
		Turns: []Turn{
			{Role: RoleUser, Parts: []Part{TextPart{Text: req.Query}}},
		},
	}
	initial, err := o.call(ctx, ex, system, slices.Clone(req.Tools))
	if err != nil {
		return nil, err
	}
	if initial.StopReason.Normal() && !isNilExecutor(exec) {
		return o.toolRound(ctx, ex, system, initial, req.Tools, exec)
	}
	text := initial.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: stop reason %q", ErrMalformedResponse, initial.StopReason)
	}
	ex.Text = text
	return ex, nil
}

// toolRound executes the requested tools once and issues the single follow-up request without tools.
func (o *Orchestrator) toolRound(ctx context.Context, ex *Exchange, system string, initial *BackendResponse, declared []ToolSpec, exec ToolExecutor) (*Exchange, error) {
	ex.Turns = append(ex.Turns, Turn{Role: RoleModel, Parts: slices.Clone(initial.Parts)})
	calls := initial.ToolCalls()
	// Resolve every call before running any, so a bad call leaves no side effects behind.
	resolved := make([]ToolCallPart, 0, len(calls))
	for _, tc := range calls {
		args, err := resolveArgs(tc, declared)
		if err != nil {
			return nil, &ToolError{Tool: tc.Name, CallID: tc.ID, Err: err}
		}
		tc.Args = args
		resolved = append(resolved, tc)
	}
	results := make([]Part, 0, len(resolved))
	for _, tc := range resolved {
		out, err := exec.Execute(ctx, tc.Name, tc.Args)
		ex.ToolCalls++
		if err != nil {
			return nil, &ToolError{Tool: tc.Name, CallID: tc.ID, Err: err}
		}
		results = append(results, ToolResultPart{
			ID:     tc.ID,
			Name:   tc.Name,
			Result: map[string]any{"content": out},
		})
	}
	if len(results) > 0 {
		ex.Turns = append(ex.Turns, Turn{Role: RoleUser, Parts: results})
	}
	final, err := o.call(ctx, ex, system, nil)
	if err != nil {
		return nil, err
	}
	text := final.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: follow-up stop reason %q", ErrMalformedResponse, final.StopReason)
	}
	ex.Text = text
	return ex, nil
}

func (o *Orchestrator) call(ctx context.Context, ex *Exchange, system string, tools []ToolSpec) (*BackendResponse, error) {
	req := &BackendRequest{
		Model:           o.model,
		System:          system,
		Turns:           slices.Clone(ex.Turns),
		Temperature:     Temperature,
		MaxOutputTokens: MaxOutputTokens,
		Tools:           tools,
	}
	ex.BackendCalls++
	resp, err := o.backend.Generate(ctx, req)
	if err != nil {
		return nil, backendError(err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: backend returned no response", ErrMalformedResponse)
	}
	return resp, nil
}

func isNilExecutor(exec ToolExecutor) bool {
	if exec == nil {
		return true
	}
	switch v := reflect.ValueOf(exec); v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

func validateRequest(req Request) error {
	if strings.TrimSpace(req.Query) == "" {
		return fmt.Errorf("%w: empty query", ErrInvalidRequest)
	}
	seen := make(map[string]bool, len(req.Tools))
	for i, t := range req.Tools {
		if t.Name == "" {
			return fmt.Errorf("%w: tool %d has no name", ErrInvalidRequest, i)
		}
		if seen[t.Name] {
			return fmt.Errorf("%w: duplicate tool %q", ErrInvalidRequest, t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// resolveArgs returns a copy of the call arguments after checking them against the declaration.
// Without declarations the executor is the only judge of the arguments.
func resolveArgs(tc ToolCallPart, declared []ToolSpec) (map[string]any, error) {
	args := maps.Clone(tc.Args)
	if args == nil {
		args = make(map[string]any)
	}
	if len(declared) == 0 {
		return args, nil
	}
	i := slices.IndexFunc(declared, func(s ToolSpec) bool { return s.Name == tc.Name })
	if i < 0 {
		return nil, ErrUnknownTool
	}
	var missing []string
	for _, name := range declared[i].RequiredParams() {
		if v, ok := args[name]; !ok || v == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingArgument, strings.Join(missing, ", "))
	}
	return args, nil
}
