package toolround

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedBackend replays responses in order and records every request.
type scriptedBackend struct {
	mu        sync.Mutex
	responses []*BackendResponse
	errs      []error
	requests  []*BackendRequest
}

func (b *scriptedBackend) Generate(ctx context.Context, req *BackendRequest) (*BackendResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := len(b.requests)
	b.requests = append(b.requests, req)
	if i < len(b.errs) && b.errs[i] != nil {
		return nil, b.errs[i]
	}
	if i >= len(b.responses) {
		return nil, errors.New("scriptedBackend: no more responses")
	}
	return b.responses[i], nil
}

func textResponse(text string) *BackendResponse {
	return &BackendResponse{StopReason: StopReasonStop, Parts: []Part{TextPart{Text: text}}}
}

type recordedCall struct {
	name string
	args map[string]any
}

// recordingExecutor returns results[name] and records calls in order.
type recordingExecutor struct {
	mu      sync.Mutex
	results map[string]any
	fail    map[string]error
	calls   []recordedCall
}

func (e *recordingExecutor) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, recordedCall{name: name, args: args})
	if err := e.fail[name]; err != nil {
		return nil, err
	}
	return e.results[name], nil
}

var searchSpec = ToolSpec{
	Name:        "search",
	Description: "Search course content",
	Parameters: map[string]any{
		"type":       "object",
		"properties": map[string]any{"query": map[string]any{"type": "string"}},
		"required":   []any{"query"},
	},
}

func TestNew_NilBackend(t *testing.T) {
	t.Parallel()
	_, err := New(nil)
	require.ErrorIs(t, err, ErrNilBackend)
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	o, err := New(&scriptedBackend{})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, o.Model())
}

func TestGenerate_NoTools_SingleCall(t *testing.T) {
	t.Parallel()
	b := &scriptedBackend{responses: []*BackendResponse{textResponse("4.")}}
	o, err := New(b, WithModel("gemini-test"))
	require.NoError(t, err)
	text, err := o.Generate(context.Background(), Request{Query: "What is 2+2?"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "4.", text)
	require.Len(t, b.requests, 1)
	req := b.requests[0]
	assert.Equal(t, "gemini-test", req.Model)
	assert.Equal(t, DefaultSystemPrompt, req.System)
	assert.InDelta(t, 0.0, req.Temperature, 0)
	assert.Equal(t, int32(800), req.MaxOutputTokens)
	assert.Nil(t, req.Tools)
	require.Len(t, req.Turns, 1)
	assert.Equal(t, RoleUser, req.Turns[0].Role)
	assert.Equal(t, []Part{TextPart{Text: "What is 2+2?"}}, req.Turns[0].Parts)
}

func TestGenerate_ToolsWithoutExecutor_SingleCall(t *testing.T) {
	t.Parallel()
	b := &scriptedBackend{responses: []*BackendResponse{textResponse("Paris")}}
	o, err := New(b)
	require.NoError(t, err)
	text, err := o.Generate(context.Background(), Request{Query: "Capital of France?", Tools: []ToolSpec{searchSpec}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Paris", text)
	require.Len(t, b.requests, 1)
	assert.Equal(t, []ToolSpec{searchSpec}, b.requests[0].Tools)
}

func TestGenerate_TypedNilExecutor_SingleCall(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		exec ToolExecutor
	}{
		{"nil pointer", (*recordingExecutor)(nil)},
		{"nil func", ToolExecutorFunc(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := &scriptedBackend{responses: []*BackendResponse{{
				StopReason: StopReasonStop,
				Parts:      []Part{TextPart{Text: "Paris"}, ToolCallPart{Name: "search", Args: map[string]any{"query": "France"}}},
			}}}
			o, err := New(b)
			require.NoError(t, err)
			text, err := o.Generate(context.Background(), Request{Query: "Capital of France?", Tools: []ToolSpec{searchSpec}}, tt.exec)
			require.NoError(t, err)
			assert.Equal(t, "Paris", text)
			assert.Len(t, b.requests, 1)
		})
	}
}

func TestGenerate_PriorContext(t *testing.T) {
	t.Parallel()
	b := &scriptedBackend{responses: []*BackendResponse{textResponse("ok")}}
	o, err := New(b, WithSystemPrompt("Be brief."))
	require.NoError(t, err)
	_, err = o.Generate(context.Background(), Request{
		Query:        "And then?",
		PriorContext: "User: hi\nAssistant: hello",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Be brief.\n\nPrevious conversation:\nUser: hi\nAssistant: hello", b.requests[0].System)
}

func TestGenerate_ToolRound(t *testing.T) {
	t.Parallel()
	call := ToolCallPart{ID: "c1", Name: "search", Args: map[string]any{"query": "X"}}
	b := &scriptedBackend{responses: []*BackendResponse{
		{StopReason: StopReasonStop, Parts: []Part{call}},
		textResponse("X is a topic."),
	}}
	exec := &recordingExecutor{results: map[string]any{"search": "X is ..."}}
	o, err := New(b)
	require.NoError(t, err)
	ex, err := o.Run(context.Background(), Request{Query: "Explain topic X", Tools: []ToolSpec{searchSpec}}, exec)
	require.NoError(t, err)
	assert.Equal(t, "X is a topic.", ex.Text)
	assert.Equal(t, 2, ex.BackendCalls)
	assert.Equal(t, 1, ex.ToolCalls)
	assert.NotEmpty(t, ex.ID)

	require.Len(t, b.requests, 2)
	followup := b.requests[1]
	assert.Nil(t, followup.Tools)
	assert.Equal(t, b.requests[0].System, followup.System)
	assert.InDelta(t, 0.0, followup.Temperature, 0)
	assert.Equal(t, int32(800), followup.MaxOutputTokens)
	require.Len(t, followup.Turns, 3)
	assert.Equal(t, RoleUser, followup.Turns[0].Role)
	assert.Equal(t, Turn{Role: RoleModel, Parts: []Part{call}}, followup.Turns[1])
	assert.Equal(t, Turn{Role: RoleUser, Parts: []Part{
		ToolResultPart{ID: "c1", Name: "search", Result: map[string]any{"content": "X is ..."}},
	}}, followup.Turns[2])

	require.Len(t, exec.calls, 1)
	assert.Equal(t, "search", exec.calls[0].name)
	assert.Equal(t, map[string]any{"query": "X"}, exec.calls[0].args)
}

func TestGenerate_ToolRound_ManyCallsInOrder(t *testing.T) {
	t.Parallel()
	lookup := ToolSpec{Name: "lookup"}
	b := &scriptedBackend{responses: []*BackendResponse{
		{StopReason: StopReasonToolCalls, Parts: []Part{
			TextPart{Text: "Let me check."},
			ToolCallPart{Name: "search", Args: map[string]any{"query": "a"}},
			ToolCallPart{Name: "lookup", Args: map[string]any{"id": 1.0}},
			ToolCallPart{Name: "search", Args: map[string]any{"query": "b"}},
		}},
		textResponse("done"),
	}}
	exec := &recordingExecutor{results: map[string]any{"search": "s", "lookup": map[string]any{"n": 1}}}
	o, err := New(b)
	require.NoError(t, err)
	ex, err := o.Run(context.Background(), Request{Query: "q", Tools: []ToolSpec{searchSpec, lookup}}, exec)
	require.NoError(t, err)
	assert.Equal(t, 3, ex.ToolCalls)

	require.Len(t, exec.calls, 3)
	assert.Equal(t, []string{"search", "lookup", "search"}, []string{exec.calls[0].name, exec.calls[1].name, exec.calls[2].name})
	assert.Equal(t, "a", exec.calls[0].args["query"])
	assert.Equal(t, "b", exec.calls[2].args["query"])

	turns := b.requests[1].Turns
	require.Len(t, turns, 3)
	results := turns[2]
	assert.Equal(t, RoleUser, results.Role)
	require.Len(t, results.Parts, 3)
	names := make([]string, 0, 3)
	for _, p := range results.Parts {
		tr, ok := p.(ToolResultPart)
		require.True(t, ok)
		names = append(names, tr.Name)
	}
	assert.Equal(t, []string{"search", "lookup", "search"}, names)
}

func TestGenerate_NormalStopWithoutToolCalls_StillFollowsUp(t *testing.T) {
	t.Parallel()
	b := &scriptedBackend{responses: []*BackendResponse{
		textResponse("draft"),
		textResponse("final"),
	}}
	exec := &recordingExecutor{}
	o, err := New(b)
	require.NoError(t, err)
	ex, err := o.Run(context.Background(), Request{Query: "q", Tools: []ToolSpec{searchSpec}}, exec)
	require.NoError(t, err)
	assert.Equal(t, "final", ex.Text)
	require.Len(t, b.requests, 2)
	assert.Nil(t, b.requests[1].Tools)
	require.Len(t, b.requests[1].Turns, 2, "no empty tool-result turn is appended")
	assert.Empty(t, exec.calls)
}

func TestGenerate_AbnormalStopSkipsToolRound(t *testing.T) {
	t.Parallel()
	b := &scriptedBackend{responses: []*BackendResponse{
		{StopReason: StopReasonMaxTokens, Parts: []Part{TextPart{Text: "partial"}}},
	}}
	exec := &recordingExecutor{}
	o, err := New(b)
	require.NoError(t, err)
	text, err := o.Generate(context.Background(), Request{Query: "q"}, exec)
	require.NoError(t, err)
	assert.Equal(t, "partial", text)
	assert.Len(t, b.requests, 1)
	assert.Empty(t, exec.calls)
}

func TestGenerate_ToolFailureAborts(t *testing.T) {
	t.Parallel()
	boom := errors.New("index offline")
	b := &scriptedBackend{responses: []*BackendResponse{
		{StopReason: StopReasonStop, Parts: []Part{
			ToolCallPart{ID: "1", Name: "search", Args: map[string]any{"query": "a"}},
			ToolCallPart{ID: "2", Name: "search", Args: map[string]any{"query": "b"}},
		}},
		textResponse("never"),
	}}
	exec := &recordingExecutor{fail: map[string]error{"search": boom}}
	o, err := New(b)
	require.NoError(t, err)
	_, err = o.Generate(context.Background(), Request{Query: "q", Tools: []ToolSpec{searchSpec}}, exec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolExecution)
	assert.ErrorIs(t, err, boom)
	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "search", te.Tool)
	assert.Equal(t, "1", te.CallID)
	assert.Len(t, b.requests, 1, "no follow-up after a tool failure")
	assert.Len(t, exec.calls, 1)
}

func TestGenerate_MissingRequiredArgument(t *testing.T) {
	t.Parallel()
	b := &scriptedBackend{responses: []*BackendResponse{
		{StopReason: StopReasonStop, Parts: []Part{
			ToolCallPart{Name: "search", Args: map[string]any{"query": "ok"}},
			ToolCallPart{Name: "search"},
		}},
	}}
	exec := &recordingExecutor{}
	o, err := New(b)
	require.NoError(t, err)
	_, err = o.Generate(context.Background(), Request{Query: "q", Tools: []ToolSpec{searchSpec}}, exec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolExecution)
	assert.ErrorIs(t, err, ErrMissingArgument)
	assert.Contains(t, err.Error(), "query")
	assert.Empty(t, exec.calls, "no tool runs when any call is invalid")
	assert.Len(t, b.requests, 1)
}

func TestGenerate_UndeclaredTool(t *testing.T) {
	t.Parallel()
	b := &scriptedBackend{responses: []*BackendResponse{
		{StopReason: StopReasonStop, Parts: []Part{ToolCallPart{Name: "delete_everything"}}},
	}}
	o, err := New(b)
	require.NoError(t, err)
	_, err = o.Generate(context.Background(), Request{Query: "q", Tools: []ToolSpec{searchSpec}}, &recordingExecutor{})
	assert.ErrorIs(t, err, ErrUnknownTool)
	assert.ErrorIs(t, err, ErrToolExecution)
}

func TestGenerate_NoDeclarationsPassesArgsThrough(t *testing.T) {
	t.Parallel()
	b := &scriptedBackend{responses: []*BackendResponse{
		{StopReason: StopReasonStop, Parts: []Part{ToolCallPart{Name: "anything"}}},
		textResponse("ok"),
	}}
	exec := &recordingExecutor{results: map[string]any{"anything": 1}}
	o, err := New(b)
	require.NoError(t, err)
	_, err = o.Generate(context.Background(), Request{Query: "q"}, exec)
	require.NoError(t, err)
	require.Len(t, exec.calls, 1)
	assert.NotNil(t, exec.calls[0].args)
	assert.Empty(t, exec.calls[0].args)
}

func TestGenerate_BackendError(t *testing.T) {
	t.Parallel()
	quota := errors.New("429 quota exceeded")
	b := &scriptedBackend{errs: []error{quota}}
	o, err := New(b)
	require.NoError(t, err)
	_, err = o.Generate(context.Background(), Request{Query: "q"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackend)
	assert.ErrorIs(t, err, quota)
	assert.Len(t, b.requests, 1, "backend errors are not retried")
}

func TestGenerate_FollowupBackendError(t *testing.T) {
	t.Parallel()
	down := errors.New("connection reset")
	b := &scriptedBackend{
		responses: []*BackendResponse{{StopReason: StopReasonStop, Parts: []Part{ToolCallPart{Name: "search", Args: map[string]any{"query": "q"}}}}},
		errs:      []error{nil, down},
	}
	o, err := New(b)
	require.NoError(t, err)
	_, err = o.Generate(context.Background(), Request{Query: "q", Tools: []ToolSpec{searchSpec}}, &recordingExecutor{})
	assert.ErrorIs(t, err, ErrBackend)
	assert.ErrorIs(t, err, down)
}

func TestGenerate_MalformedFromBackendNotRewrapped(t *testing.T) {
	t.Parallel()
	malformed := errors.Join(ErrMalformedResponse, errors.New("no candidates"))
	b := &scriptedBackend{errs: []error{malformed}}
	o, err := New(b)
	require.NoError(t, err)
	_, err = o.Generate(context.Background(), Request{Query: "q"}, nil)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.NotErrorIs(t, err, ErrBackend)
}

func TestGenerate_MalformedResponse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		resp *BackendResponse
	}{
		{"nil response", nil},
		{"no parts", &BackendResponse{StopReason: StopReasonStop}},
		{"safety stop without text", &BackendResponse{StopReason: StopReasonSafety}},
		{"tool call without executor", &BackendResponse{StopReason: StopReasonStop, Parts: []Part{ToolCallPart{Name: "search"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := &scriptedBackend{responses: []*BackendResponse{tt.resp}}
			o, err := New(b)
			require.NoError(t, err)
			_, err = o.Generate(context.Background(), Request{Query: "q"}, nil)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestGenerate_EmptyFollowupIsMalformed(t *testing.T) {
	t.Parallel()
	b := &scriptedBackend{responses: []*BackendResponse{
		{StopReason: StopReasonStop, Parts: []Part{ToolCallPart{Name: "search", Args: map[string]any{"query": "q"}}}},
		{StopReason: StopReasonStop},
	}}
	o, err := New(b)
	require.NoError(t, err)
	_, err = o.Generate(context.Background(), Request{Query: "q", Tools: []ToolSpec{searchSpec}}, &recordingExecutor{})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestGenerate_InvalidRequest(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		req  Request
	}{
		{"empty query", Request{}},
		{"blank query", Request{Query: " \n\t"}},
		{"unnamed tool", Request{Query: "q", Tools: []ToolSpec{{Description: "x"}}}},
		{"duplicate tool", Request{Query: "q", Tools: []ToolSpec{searchSpec, searchSpec}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := &scriptedBackend{}
			o, err := New(b)
			require.NoError(t, err)
			_, err = o.Generate(context.Background(), tt.req, nil)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Empty(t, b.requests)
		})
	}
}

func TestRun_ExchangeIDInContext(t *testing.T) {
	t.Parallel()
	var seen []string
	backend := BackendFunc(func(ctx context.Context, req *BackendRequest) (*BackendResponse, error) {
		id, _ := ExchangeIDFromContext(ctx)
		seen = append(seen, id)
		if len(req.Turns) == 1 {
			return &BackendResponse{StopReason: StopReasonStop, Parts: []Part{ToolCallPart{Name: "t"}}}, nil
		}
		return textResponse("ok"), nil
	})
	exec := ToolExecutorFunc(func(ctx context.Context, name string, args map[string]any) (any, error) {
		id, _ := ExchangeIDFromContext(ctx)
		seen = append(seen, id)
		return nil, nil
	})
	o, err := New(backend)
	require.NoError(t, err)
	ex, err := o.Run(context.Background(), Request{Query: "q"}, exec)
	require.NoError(t, err)
	require.Len(t, seen, 3)
	for _, id := range seen {
		assert.Equal(t, ex.ID, id)
	}

	ctx := WithExchangeID(context.Background(), "caller-id")
	ex, err = o.Run(ctx, Request{Query: "q"}, exec)
	require.NoError(t, err)
	assert.Equal(t, "caller-id", ex.ID)
}

func TestGenerate_ConcurrentCallers(t *testing.T) {
	t.Parallel()
	backend := BackendFunc(func(ctx context.Context, req *BackendRequest) (*BackendResponse, error) {
		return textResponse("echo: " + req.Turns[0].Parts[0].(TextPart).Text), nil
	})
	o, err := New(backend)
	require.NoError(t, err)
	var wg sync.WaitGroup
	for _, q := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := o.Generate(context.Background(), Request{Query: q}, nil)
			assert.NoError(t, err)
			assert.Equal(t, "echo: "+q, text)
		}()
	}
	wg.Wait()
}

func TestBackendResponse_Accessors(t *testing.T) {
	t.Parallel()
	var nilResp *BackendResponse
	assert.Empty(t, nilResp.Text())
	assert.Nil(t, nilResp.ToolCalls())
	resp := &BackendResponse{Parts: []Part{
		TextPart{Text: "a"},
		ToolCallPart{Name: "t1"},
		TextPart{Text: "b"},
		ToolCallPart{Name: "t2"},
	}}
	assert.Equal(t, "ab", resp.Text())
	calls := resp.ToolCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "t1", calls[0].Name)
	assert.Equal(t, "t2", calls[1].Name)
}

func TestStopReason_Normal(t *testing.T) {
	t.Parallel()
	assert.True(t, StopReasonStop.Normal())
	assert.True(t, StopReasonToolCalls.Normal())
	assert.False(t, StopReasonMaxTokens.Normal())
	assert.False(t, StopReasonSafety.Normal())
	assert.False(t, StopReasonOther.Normal())
	assert.False(t, StopReasonUnspecified.Normal())
}

func TestToolSpec_RequiredParams(t *testing.T) {
	t.Parallel()
	assert.Nil(t, ToolSpec{}.RequiredParams())
	assert.Equal(t, []string{"query"}, searchSpec.RequiredParams())
	assert.Equal(t, []string{"a", "b"}, ToolSpec{Parameters: map[string]any{"required": []string{"a", "b"}}}.RequiredParams())
	assert.Nil(t, ToolSpec{Parameters: map[string]any{"required": "a"}}.RequiredParams())
}
