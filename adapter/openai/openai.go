package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/openai/openai-go/v3/shared/constant"

	"github.com/skosovsky/toolround"
	"github.com/skosovsky/toolround/adapter"
)

// Completions is the part of the OpenAI client the backend needs. *openai.ChatCompletionService satisfies it.
type Completions interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// DefaultModel is used when neither the request nor WithModel names a model.
const DefaultModel = openai.ChatModelGPT4o

// Backend implements toolround.Backend for the OpenAI Chat Completions API.
type Backend struct {
	completions  Completions
	defaultModel shared.ChatModel
}

// Option configures a Backend (e.g. WithModel).
type Option func(*Backend)

// WithModel sets the model used when the request does not name one.
func WithModel(m shared.ChatModel) Option {
	return func(b *Backend) { b.defaultModel = m }
}

// New returns a Backend over completions, usually &client.Chat.Completions.
func New(completions Completions, opts ...Option) *Backend {
	b := &Backend{completions: completions, defaultModel: DefaultModel}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewFromAPIKey builds an OpenAI client for apiKey and returns a Backend over it.
// Extra request options (e.g. option.WithBaseURL for compatible servers) are passed to the client.
func NewFromAPIKey(apiKey string, clientOpts []option.RequestOption, opts ...Option) *Backend {
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, clientOpts...)...)
	return New(&client.Chat.Completions, opts...)
}

// Generate translates req, sends it and parses the reply.
func (b *Backend) Generate(ctx context.Context, req *toolround.BackendRequest) (*toolround.BackendResponse, error) {
	params, err := b.Translate(req)
	if err != nil {
		return nil, err
	}
	completion, err := b.completions.New(ctx, *params)
	if err != nil {
		return nil, fmt.Errorf("openai: create chat completion: %w", err)
	}
	return b.ParseResponse(completion)
}

// Translate converts a BackendRequest into *openai.ChatCompletionNewParams.
func (b *Backend) Translate(req *toolround.BackendRequest) (*openai.ChatCompletionNewParams, error) {
	if req == nil {
		return nil, adapter.ErrNilRequest
	}
	params := &openai.ChatCompletionNewParams{
		Messages:    make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Turns)+1),
		Model:       b.defaultModel,
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(int64(req.MaxOutputTokens)),
	}
	if req.Model != "" {
		params.Model = shared.ChatModel(req.Model) //nolint:unconvert // ChatModel is a distinct type
	}
	if req.System != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(req.System))
	}
	for _, turn := range req.Turns {
		msgs, err := turnMessages(turn)
		if err != nil {
			return nil, err
		}
		params.Messages = append(params.Messages, msgs...)
	}
	for _, t := range req.Tools {
		fn := shared.FunctionDefinitionParam{
			Name:       t.Name,
			Parameters: shared.FunctionParameters(t.Parameters),
		}
		if t.Description != "" {
			fn.Description = openai.String(t.Description)
		}
		params.Tools = append(params.Tools, openai.ChatCompletionFunctionTool(fn))
	}
	return params, nil
}

// turnMessages maps one turn to chat messages. A user turn of tool results
// becomes one tool message per result.
func turnMessages(turn toolround.Turn) ([]openai.ChatCompletionMessageParamUnion, error) {
	switch turn.Role {
	case toolround.RoleUser:
		var out []openai.ChatCompletionMessageParamUnion
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
				out = append(out, openai.ToolMessage(content, x.ID))
			default:
				return nil, fmt.Errorf("%w: %T in user turn", adapter.ErrUnsupportedPart, p)
			}
		}
		if hasText {
			out = append(out, openai.UserMessage(adapter.TextFromParts(turn.Parts)))
		}
		return out, nil
	case toolround.RoleModel:
		msg, err := assistantMessage(turn.Parts)
		if err != nil {
			return nil, err
		}
		return []openai.ChatCompletionMessageParamUnion{msg}, nil
	default:
		return nil, fmt.Errorf("%w: %q", adapter.ErrUnsupportedRole, turn.Role)
	}
}

func assistantMessage(parts []toolround.Part) (openai.ChatCompletionMessageParamUnion, error) {
	var toolCalls []openai.ChatCompletionMessageToolCallUnionParam
	for _, p := range parts {
		switch x := p.(type) {
		case toolround.TextPart:
		case toolround.ToolCallPart:
			args, err := adapter.ArgsJSON(x.Args)
			if err != nil {
				return openai.ChatCompletionMessageParamUnion{}, err
			}
			toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallUnionParam{
				OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
					ID: x.ID,
					Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
						Name:      x.Name,
						Arguments: args,
					},
					Type: "function",
				},
			})
		default:
			return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("%w: %T in model turn", adapter.ErrUnsupportedPart, p)
		}
	}
	text := adapter.TextFromParts(parts)
	if len(toolCalls) == 0 {
		return openai.AssistantMessage(text), nil
	}
	msg := &openai.ChatCompletionAssistantMessageParam{
		ToolCalls: toolCalls,
		Role:      constant.Assistant("assistant"),
	}
	if text != "" {
		msg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(text)}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: msg}, nil
}

// ParseResponse converts the first choice of *openai.ChatCompletion into a BackendResponse.
func (b *Backend) ParseResponse(completion *openai.ChatCompletion) (*toolround.BackendResponse, error) {
	if completion == nil {
		return nil, adapter.ErrInvalidResponse
	}
	if len(completion.Choices) == 0 {
		return nil, adapter.ErrEmptyResponse
	}
	choice := completion.Choices[0]
	out := &toolround.BackendResponse{StopReason: stopReason(choice.FinishReason)}
	if choice.Message.Content != "" {
		out.Parts = append(out.Parts, toolround.TextPart{Text: choice.Message.Content})
	}
	for _, tc := range choice.Message.ToolCalls {
		if tc.Type != "function" {
			continue
		}
		args, err := adapter.ParseArgs(tc.Function.Arguments)
		if err != nil {
			return nil, fmt.Errorf("tool call %q: %w", tc.Function.Name, err)
		}
		out.Parts = append(out.Parts, toolround.ToolCallPart{ID: tc.ID, Name: tc.Function.Name, Args: args})
	}
	return out, nil
}

func stopReason(r string) toolround.StopReason {
	switch r {
	case "stop":
		return toolround.StopReasonStop
	case "tool_calls", "function_call":
		return toolround.StopReasonToolCalls
	case "length":
		return toolround.StopReasonMaxTokens
	case "content_filter":
		return toolround.StopReasonSafety
	case "":
		return toolround.StopReasonUnspecified
	default:
		return toolround.StopReasonOther
	}
}

// Compile-time check that Backend implements toolround.Backend.
var _ toolround.Backend = (*Backend)(nil)
