package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"

	"github.com/google/uuid"
	"github.com/ollama/ollama/api"

	"github.com/skosovsky/toolround"
	"github.com/skosovsky/toolround/adapter"
)

// Chatter is the part of the Ollama client the backend needs. *api.Client satisfies it.
type Chatter interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

// DefaultModel is used when neither the request nor WithModel names a model.
const DefaultModel = "llama3.2"

// Backend implements toolround.Backend for the Ollama Chat API. Requests are never streamed.
type Backend struct {
	client       Chatter
	defaultModel string
}

// Option configures a Backend (e.g. WithModel).
type Option func(*Backend)

// WithModel sets the model used when the request does not name one.
func WithModel(m string) Option {
	return func(b *Backend) { b.defaultModel = m }
}

// New returns a Backend over client with default model "llama3.2".
func New(client Chatter, opts ...Option) *Backend {
	b := &Backend{client: client, defaultModel: DefaultModel}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewFromHost returns a Backend for the Ollama server at host (e.g. "http://localhost:11434").
// Empty host reads OLLAMA_HOST like the ollama CLI does.
func NewFromHost(host string, opts ...Option) (*Backend, error) {
	if host == "" {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama: client from environment: %w", err)
		}
		return New(client, opts...), nil
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("ollama: parse host %q: %w", host, err)
	}
	return New(api.NewClient(u, http.DefaultClient), opts...), nil
}

// Generate translates req, runs one non-streaming chat call and parses the reply.
func (b *Backend) Generate(ctx context.Context, req *toolround.BackendRequest) (*toolround.BackendResponse, error) {
	chatReq, err := b.Translate(req)
	if err != nil {
		return nil, err
	}
	var final *api.ChatResponse
	err = b.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		final = &resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: chat: %w", err)
	}
	return b.ParseResponse(final)
}

// Translate converts a BackendRequest into *api.ChatRequest.
func (b *Backend) Translate(req *toolround.BackendRequest) (*api.ChatRequest, error) {
	if req == nil {
		return nil, adapter.ErrNilRequest
	}
	stream := false
	chatReq := &api.ChatRequest{
		Model:    b.defaultModel,
		Messages: make([]api.Message, 0, len(req.Turns)+1),
		Stream:   &stream,
		Options: map[string]any{
			"temperature": req.Temperature,
			"num_predict": req.MaxOutputTokens,
		},
	}
	if req.Model != "" {
		chatReq.Model = req.Model
	}
	if req.System != "" {
		chatReq.Messages = append(chatReq.Messages, api.Message{Role: "system", Content: req.System})
	}
	for _, turn := range req.Turns {
		msgs, err := turnMessages(turn)
		if err != nil {
			return nil, err
		}
		chatReq.Messages = append(chatReq.Messages, msgs...)
	}
	for _, t := range req.Tools {
		tool, err := translateTool(t)
		if err != nil {
			return nil, err
		}
		chatReq.Tools = append(chatReq.Tools, tool)
	}
	return chatReq, nil
}

func turnMessages(turn toolround.Turn) ([]api.Message, error) {
	switch turn.Role {
	case toolround.RoleUser:
		var out []api.Message
		hasText := false
		for _, p := range turn.Parts {
			switch x := p.(type) {
			case toolround.TextPart:
				hasText = true
			case toolround.ToolResultPart:
				content, err := adapter.ResultJSON(x.Result)
				if err != nil {
					return nil, err
				}
				out = append(out, api.Message{Role: "tool", Content: content, ToolCallID: x.ID})
			default:
				return nil, fmt.Errorf("%w: %T in user turn", adapter.ErrUnsupportedPart, p)
			}
		}
		if hasText {
			out = append(out, api.Message{Role: "user", Content: adapter.TextFromParts(turn.Parts)})
		}
		return out, nil
	case toolround.RoleModel:
		var toolCalls []api.ToolCall
		for _, p := range turn.Parts {
			switch x := p.(type) {
			case toolround.TextPart:
			case toolround.ToolCallPart:
				toolCalls = append(toolCalls, api.ToolCall{
					ID: x.ID,
					Function: api.ToolCallFunction{
						Index:     len(toolCalls),
						Name:      x.Name,
						Arguments: toolCallArgs(x.Args),
					},
				})
			default:
				return nil, fmt.Errorf("%w: %T in model turn", adapter.ErrUnsupportedPart, p)
			}
		}
		return []api.Message{{Role: "assistant", Content: adapter.TextFromParts(turn.Parts), ToolCalls: toolCalls}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", adapter.ErrUnsupportedRole, turn.Role)
	}
}

// toolCallArgs copies args in key order so requests are deterministic.
func toolCallArgs(args map[string]any) api.ToolCallFunctionArguments {
	out := api.NewToolCallFunctionArguments()
	for _, k := range slices.Sorted(maps.Keys(args)) {
		out.Set(k, args[k])
	}
	return out
}

func translateTool(t toolround.ToolSpec) (api.Tool, error) {
	params := api.ToolFunctionParameters{
		Type:       "object",
		Properties: api.NewToolPropertiesMap(),
	}
	if t.Parameters != nil {
		b, err := json.Marshal(t.Parameters)
		if err != nil {
			return api.Tool{}, fmt.Errorf("%w: tool %q parameters: %w", adapter.ErrMalformedArgs, t.Name, err)
		}
		if err = json.Unmarshal(b, &params); err != nil {
			return api.Tool{}, fmt.Errorf("%w: tool %q parameters: %w", adapter.ErrMalformedArgs, t.Name, err)
		}
		if params.Properties == nil {
			params.Properties = api.NewToolPropertiesMap()
		}
	}
	return api.Tool{
		Type: "function",
		Function: api.ToolFunction{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		},
	}, nil
}

// ParseResponse converts the final *api.ChatResponse into a BackendResponse.
// Ollama may omit tool call IDs; missing ones are filled with UUIDs so results can be matched.
func (b *Backend) ParseResponse(resp *api.ChatResponse) (*toolround.BackendResponse, error) {
	if resp == nil {
		return nil, adapter.ErrEmptyResponse
	}
	out := &toolround.BackendResponse{StopReason: stopReason(resp.DoneReason, len(resp.Message.ToolCalls) > 0)}
	if resp.Message.Content != "" {
		out.Parts = append(out.Parts, toolround.TextPart{Text: resp.Message.Content})
	}
	for _, tc := range resp.Message.ToolCalls {
		id := tc.ID
		if id == "" {
			id = uuid.NewString()
		}
		args := tc.Function.Arguments.ToMap()
		if args == nil {
			args = make(map[string]any)
		}
		out.Parts = append(out.Parts, toolround.ToolCallPart{ID: id, Name: tc.Function.Name, Args: args})
	}
	return out, nil
}

func stopReason(doneReason string, hasToolCalls bool) toolround.StopReason {
	switch doneReason {
	case "stop":
		if hasToolCalls {
			return toolround.StopReasonToolCalls
		}
		return toolround.StopReasonStop
	case "length":
		return toolround.StopReasonMaxTokens
	case "":
		return toolround.StopReasonUnspecified
	default:
		return toolround.StopReasonOther
	}
}

var _ toolround.Backend = (*Backend)(nil)
