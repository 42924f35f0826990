package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/skosovsky/toolround"
	"github.com/skosovsky/toolround/adapter"
	"github.com/skosovsky/toolround/internal/cast"
)

// Messages is the part of the Anthropic client the backend needs. *anthropic.MessageService satisfies it.
type Messages interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// DefaultModel is used when neither the request nor WithModel names a model.
const DefaultModel = anthropic.ModelClaudeSonnet4_5_20250929

// Backend implements toolround.Backend for the Anthropic Messages API.
type Backend struct {
	messages     Messages
	defaultModel anthropic.Model
}

// Option configures a Backend (e.g. WithModel).
type Option func(*Backend)

// WithModel sets the model used when the request does not name one.
func WithModel(m anthropic.Model) Option {
	return func(b *Backend) { b.defaultModel = m }
}

// New returns a Backend over messages, usually &client.Messages.
func New(messages Messages, opts ...Option) *Backend {
	b := &Backend{messages: messages, defaultModel: DefaultModel}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewFromAPIKey builds an Anthropic client for apiKey and returns a Backend over it.
func NewFromAPIKey(apiKey string, opts ...Option) *Backend {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return New(&client.Messages, opts...)
}

// Generate translates req, sends it and parses the reply.
func (b *Backend) Generate(ctx context.Context, req *toolround.BackendRequest) (*toolround.BackendResponse, error) {
	params, err := b.Translate(req)
	if err != nil {
		return nil, err
	}
	msg, err := b.messages.New(ctx, *params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: create message: %w", err)
	}
	return b.ParseResponse(msg)
}

// Translate converts a BackendRequest into *anthropic.MessageNewParams.
func (b *Backend) Translate(req *toolround.BackendRequest) (*anthropic.MessageNewParams, error) {
	if req == nil {
		return nil, adapter.ErrNilRequest
	}
	params := &anthropic.MessageNewParams{
		Model:       b.defaultModel,
		MaxTokens:   int64(req.MaxOutputTokens),
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.Model != "" {
		params.Model = anthropic.Model(req.Model)
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	for _, turn := range req.Turns {
		m, err := turnMessage(turn)
		if err != nil {
			return nil, err
		}
		params.Messages = append(params.Messages, m)
	}
	for _, t := range req.Tools {
		tool := anthropic.ToolUnionParamOfTool(toolSchemaFromParameters(t.Parameters), t.Name)
		if t.Description != "" {
			tool.OfTool.Description = anthropic.String(t.Description)
		}
		params.Tools = append(params.Tools, tool)
	}
	return params, nil
}

// toolSchemaFromParameters builds ToolInputSchemaParam from a JSON Schema map, keeping properties and required.
func toolSchemaFromParameters(params map[string]any) anthropic.ToolInputSchemaParam {
	schema := anthropic.ToolInputSchemaParam{
		Type: constant.Object("object"),
	}
	if params == nil {
		return schema
	}
	if p, ok := params["properties"].(map[string]any); ok {
		schema.Properties = p
	}
	if required, ok := cast.ToStringSlice(params["required"]); ok {
		schema.Required = required
	}
	return schema
}

func turnMessage(turn toolround.Turn) (anthropic.MessageParam, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(turn.Parts))
	for _, p := range turn.Parts {
		switch x := p.(type) {
		case toolround.TextPart:
			blocks = append(blocks, anthropic.NewTextBlock(x.Text))
		case toolround.ToolCallPart:
			if turn.Role != toolround.RoleModel {
				return anthropic.MessageParam{}, fmt.Errorf("%w: tool call in %s turn", adapter.ErrUnsupportedPart, turn.Role)
			}
			input := x.Args
			if input == nil {
				input = map[string]any{}
			}
			blocks = append(blocks, anthropic.NewToolUseBlock(x.ID, input, x.Name))
		case toolround.ToolResultPart:
			if turn.Role != toolround.RoleUser {
				return anthropic.MessageParam{}, fmt.Errorf("%w: tool result in %s turn", adapter.ErrUnsupportedPart, turn.Role)
			}
			content, err := adapter.ResultJSON(x.Result)
			if err != nil {
				return anthropic.MessageParam{}, err
			}
			blocks = append(blocks, anthropic.NewToolResultBlock(x.ID, content, false))
		default:
			return anthropic.MessageParam{}, fmt.Errorf("%w: %T", adapter.ErrUnsupportedPart, p)
		}
	}
	switch turn.Role {
	case toolround.RoleUser:
		return anthropic.NewUserMessage(blocks...), nil
	case toolround.RoleModel:
		return anthropic.NewAssistantMessage(blocks...), nil
	default:
		return anthropic.MessageParam{}, fmt.Errorf("%w: %q", adapter.ErrUnsupportedRole, turn.Role)
	}
}

// ParseResponse converts *anthropic.Message into a BackendResponse.
func (b *Backend) ParseResponse(msg *anthropic.Message) (*toolround.BackendResponse, error) {
	if msg == nil {
		return nil, adapter.ErrInvalidResponse
	}
	out := &toolround.BackendResponse{StopReason: stopReason(string(msg.StopReason))}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				out.Parts = append(out.Parts, toolround.TextPart{Text: block.Text})
			}
		case "tool_use":
			args, err := adapter.ParseArgs(string(block.Input))
			if err != nil {
				return nil, fmt.Errorf("tool_use %q: %w", block.Name, err)
			}
			out.Parts = append(out.Parts, toolround.ToolCallPart{ID: block.ID, Name: block.Name, Args: args})
		}
	}
	return out, nil
}

func stopReason(r string) toolround.StopReason {
	switch r {
	case "end_turn", "stop_sequence":
		return toolround.StopReasonStop
	case "tool_use":
		return toolround.StopReasonToolCalls
	case "max_tokens":
		return toolround.StopReasonMaxTokens
	case "refusal":
		return toolround.StopReasonSafety
	case "":
		return toolround.StopReasonUnspecified
	default:
		return toolround.StopReasonOther
	}
}

var _ toolround.Backend = (*Backend)(nil)
