package ollama

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/toolround"
	"github.com/skosovsky/toolround/adapter"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeChatter struct {
	req  *api.ChatRequest
	resp api.ChatResponse
	err  error
}

func (f *fakeChatter) Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error {
	f.req = req
	if f.err != nil {
		return f.err
	}
	return fn(f.resp)
}

func userTurn(text string) toolround.Turn {
	return toolround.Turn{Role: toolround.RoleUser, Parts: []toolround.Part{toolround.TextPart{Text: text}}}
}

func ExampleBackend_Translate() {
	req, _ := New(nil).Translate(&toolround.BackendRequest{Turns: []toolround.Turn{userTurn("Hello")}})
	fmt.Println(req.Messages[0].Content)
	// Output: Hello
}

func TestTranslate_SystemAndOptions(t *testing.T) {
	t.Parallel()
	req, err := New(nil).Translate(&toolround.BackendRequest{
		System:          "You are a helper.",
		MaxOutputTokens: 800,
		Turns:           []toolround.Turn{userTurn("Hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", req.Model)
	require.NotNil(t, req.Stream)
	assert.False(t, *req.Stream)
	assert.Equal(t, 0.0, req.Options["temperature"])
	assert.Equal(t, int32(800), req.Options["num_predict"])
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "You are a helper.", req.Messages[0].Content)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "Hi", req.Messages[1].Content)
}

func TestTranslate_WithTools(t *testing.T) {
	t.Parallel()
	req, err := New(nil, WithModel("qwen3")).Translate(&toolround.BackendRequest{
		Turns: []toolround.Turn{userTurn("Search")},
		Tools: []toolround.ToolSpec{
			{Name: "search_course_content", Description: "Search course materials", Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"query": map[string]any{"type": "string"}},
				"required":   []any{"query"},
			}},
			{Name: "no_params"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "qwen3", req.Model)
	require.Len(t, req.Tools, 2)
	assert.Equal(t, "function", req.Tools[0].Type)
	assert.Equal(t, "search_course_content", req.Tools[0].Function.Name)
	assert.Equal(t, "Search course materials", req.Tools[0].Function.Description)
	assert.Equal(t, []string{"query"}, req.Tools[0].Function.Parameters.Required)
	assert.Equal(t, "object", req.Tools[1].Function.Parameters.Type)
}

func TestTranslate_ToolRoundTurns(t *testing.T) {
	t.Parallel()
	req, err := New(nil).Translate(&toolround.BackendRequest{Turns: []toolround.Turn{
		userTurn("Explain MCP"),
		{Role: toolround.RoleModel, Parts: []toolround.Part{
			toolround.ToolCallPart{ID: "call_1", Name: "search", Args: map[string]any{"query": "MCP"}},
		}},
		{Role: toolround.RoleUser, Parts: []toolround.Part{
			toolround.ToolResultPart{ID: "call_1", Name: "search", Result: map[string]any{"content": "MCP is ..."}},
		}},
	}})
	require.NoError(t, err)
	require.Len(t, req.Messages, 3)
	assistant := req.Messages[1]
	assert.Equal(t, "assistant", assistant.Role)
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, "call_1", assistant.ToolCalls[0].ID)
	assert.Equal(t, "search", assistant.ToolCalls[0].Function.Name)
	assert.Equal(t, map[string]any{"query": "MCP"}, assistant.ToolCalls[0].Function.Arguments.ToMap())
	tool := req.Messages[2]
	assert.Equal(t, "tool", tool.Role)
	assert.Equal(t, "call_1", tool.ToolCallID)
	assert.JSONEq(t, `{"content":"MCP is ..."}`, tool.Content)
}

func TestTranslate_Errors(t *testing.T) {
	t.Parallel()
	b := New(nil)
	_, err := b.Translate(nil)
	require.ErrorIs(t, err, adapter.ErrNilRequest)
	_, err = b.Translate(&toolround.BackendRequest{Turns: []toolround.Turn{{Role: "system"}}})
	require.ErrorIs(t, err, adapter.ErrUnsupportedRole)
	_, err = b.Translate(&toolround.BackendRequest{Turns: []toolround.Turn{
		{Role: toolround.RoleUser, Parts: []toolround.Part{toolround.ToolCallPart{Name: "x"}}},
	}})
	assert.ErrorIs(t, err, adapter.ErrUnsupportedPart)
}

func TestParseResponse_Text(t *testing.T) {
	t.Parallel()
	got, err := New(nil).ParseResponse(&api.ChatResponse{
		Message:    api.Message{Role: "assistant", Content: "Hello back"},
		Done:       true,
		DoneReason: "stop",
	})
	require.NoError(t, err)
	assert.Equal(t, toolround.StopReasonStop, got.StopReason)
	assert.Equal(t, "Hello back", got.Text())
}

func TestParseResponse_ToolCallsFillMissingIDs(t *testing.T) {
	t.Parallel()
	args := api.NewToolCallFunctionArguments()
	args.Set("query", "MCP")
	got, err := New(nil).ParseResponse(&api.ChatResponse{
		Message: api.Message{
			Role: "assistant",
			ToolCalls: []api.ToolCall{
				{Function: api.ToolCallFunction{Name: "search", Arguments: args}},
				{ID: "call_2", Function: api.ToolCallFunction{Index: 1, Name: "outline"}},
			},
		},
		Done:       true,
		DoneReason: "stop",
	})
	require.NoError(t, err)
	assert.Equal(t, toolround.StopReasonToolCalls, got.StopReason)
	calls := got.ToolCalls()
	require.Len(t, calls, 2)
	assert.NotEmpty(t, calls[0].ID)
	assert.Equal(t, "search", calls[0].Name)
	assert.Equal(t, map[string]any{"query": "MCP"}, calls[0].Args)
	assert.Equal(t, "call_2", calls[1].ID)
	assert.NotNil(t, calls[1].Args)
}

func TestStopReason(t *testing.T) {
	t.Parallel()
	assert.Equal(t, toolround.StopReasonStop, stopReason("stop", false))
	assert.Equal(t, toolround.StopReasonToolCalls, stopReason("stop", true))
	assert.Equal(t, toolround.StopReasonMaxTokens, stopReason("length", false))
	assert.Equal(t, toolround.StopReasonUnspecified, stopReason("", false))
	assert.Equal(t, toolround.StopReasonOther, stopReason("load", false))
}

func TestGenerate(t *testing.T) {
	t.Parallel()
	f := &fakeChatter{resp: api.ChatResponse{Message: api.Message{Role: "assistant", Content: "4."}, Done: true, DoneReason: "stop"}}
	got, err := New(f).Generate(context.Background(), &toolround.BackendRequest{Model: "llama3.1", Turns: []toolround.Turn{userTurn("What is 2+2?")}})
	require.NoError(t, err)
	assert.Equal(t, "4.", got.Text())
	assert.Equal(t, "llama3.1", f.req.Model)
}

func TestGenerate_NoResponse(t *testing.T) {
	t.Parallel()
	f := &fakeChatter{}
	_, err := New(chatterFunc(func(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error {
		return nil
	})).Generate(context.Background(), &toolround.BackendRequest{Turns: []toolround.Turn{userTurn("x")}})
	require.ErrorIs(t, err, toolround.ErrMalformedResponse)

	f.err = errors.New("connection refused")
	_, err = New(f).Generate(context.Background(), &toolround.BackendRequest{Turns: []toolround.Turn{userTurn("x")}})
	assert.ErrorIs(t, err, f.err)
}

type chatterFunc func(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error

func (f chatterFunc) Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error {
	return f(ctx, req, fn)
}

func TestNewFromHost(t *testing.T) {
	t.Parallel()
	b, err := NewFromHost("http://localhost:11434")
	require.NoError(t, err)
	assert.NotNil(t, b)
	_, err = NewFromHost("://bad")
	assert.Error(t, err)
}
