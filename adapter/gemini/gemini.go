package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/skosovsky/toolround"
	"github.com/skosovsky/toolround/adapter"
)

// Models is the part of the genai client the backend needs. *genai.Models satisfies it.
type Models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Request is one GenerateContent call: model, contents and config.
type Request struct {
	Model    string
	Contents []*genai.Content
	Config   *genai.GenerateContentConfig
}

// Backend implements toolround.Backend for the Google Gemini (genai) API.
type Backend struct {
	models      Models
	typedSchema bool
}

// Option configures a Backend.
type Option func(*Backend)

// WithTypedSchema sends tool parameters as *genai.Schema instead of raw JSON Schema.
// Vertex AI models that reject ParametersJsonSchema need this.
func WithTypedSchema() Option {
	return func(b *Backend) { b.typedSchema = true }
}

// New returns a Backend over models, usually client.Models.
func New(models Models, opts ...Option) *Backend {
	b := &Backend{models: models}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewFromAPIKey builds a Gemini API client for apiKey and returns a Backend over it.
func NewFromAPIKey(ctx context.Context, apiKey string, opts ...Option) (*Backend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return New(client.Models, opts...), nil
}

// Generate translates req, calls GenerateContent and parses the reply.
func (b *Backend) Generate(ctx context.Context, req *toolround.BackendRequest) (*toolround.BackendResponse, error) {
	r, err := b.Translate(req)
	if err != nil {
		return nil, err
	}
	resp, err := b.models.GenerateContent(ctx, r.Model, r.Contents, r.Config)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}
	return b.ParseResponse(resp)
}

// Translate converts a BackendRequest into a GenerateContent call.
func (b *Backend) Translate(req *toolround.BackendRequest) (*Request, error) {
	if req == nil {
		return nil, adapter.ErrNilRequest
	}
	temperature := float32(req.Temperature)
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: req.MaxOutputTokens,
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	// One genai.Tool per declaration.
	for _, t := range req.Tools {
		decl := &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
		}
		if b.typedSchema {
			schema, err := mapToGenaiSchema(t.Parameters)
			if err != nil {
				return nil, fmt.Errorf("%w: tool %q: %w", adapter.ErrMalformedArgs, t.Name, err)
			}
			decl.Parameters = schema
		} else if t.Parameters != nil {
			decl.ParametersJsonSchema = t.Parameters
		}
		config.Tools = append(config.Tools, &genai.Tool{FunctionDeclarations: []*genai.FunctionDeclaration{decl}})
	}
	contents := make([]*genai.Content, 0, len(req.Turns))
	for _, turn := range req.Turns {
		c, err := turnContent(turn)
		if err != nil {
			return nil, err
		}
		contents = append(contents, c)
	}
	model := req.Model
	if model == "" {
		model = toolround.DefaultModel
	}
	return &Request{Model: model, Contents: contents, Config: config}, nil
}

func turnContent(turn toolround.Turn) (*genai.Content, error) {
	var role genai.Role
	switch turn.Role {
	case toolround.RoleUser:
		role = genai.RoleUser
	case toolround.RoleModel:
		role = genai.RoleModel
	default:
		return nil, fmt.Errorf("%w: %q", adapter.ErrUnsupportedRole, turn.Role)
	}
	parts := make([]*genai.Part, 0, len(turn.Parts))
	for _, p := range turn.Parts {
		switch x := p.(type) {
		case toolround.TextPart:
			parts = append(parts, &genai.Part{Text: x.Text, ThoughtSignature: x.Signature})
		case toolround.ToolCallPart:
			args := x.Args
			if args == nil {
				args = make(map[string]any)
			}
			parts = append(parts, &genai.Part{
				FunctionCall:     &genai.FunctionCall{ID: x.ID, Name: x.Name, Args: args},
				ThoughtSignature: x.Signature,
			})
		case toolround.ToolResultPart:
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{ID: x.ID, Name: x.Name, Response: x.Result}})
		default:
			return nil, fmt.Errorf("%w: %T", adapter.ErrUnsupportedPart, p)
		}
	}
	return genai.NewContentFromParts(parts, role), nil
}

// ParseResponse converts the first candidate of resp into a BackendResponse, keeping part order.
// Thought signatures stay on their parts; Gemini rejects a replayed function call without its signature.
func (b *Backend) ParseResponse(resp *genai.GenerateContentResponse) (*toolround.BackendResponse, error) {
	if resp == nil {
		return nil, adapter.ErrInvalidResponse
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil, adapter.ErrEmptyResponse
	}
	cand := resp.Candidates[0]
	out := &toolround.BackendResponse{StopReason: stopReason(cand.FinishReason)}
	if cand.Content == nil {
		return out, nil
	}
	for _, p := range cand.Content.Parts {
		if p == nil {
			continue
		}
		switch {
		case p.FunctionCall != nil:
			args := p.FunctionCall.Args
			if args == nil {
				args = make(map[string]any)
			}
			out.Parts = append(out.Parts, toolround.ToolCallPart{
				ID:        p.FunctionCall.ID,
				Name:      p.FunctionCall.Name,
				Args:      args,
				Signature: p.ThoughtSignature,
			})
		case p.Thought:
			// Thought summaries are not answer text. A signature on one moves to an empty text part.
			if len(p.ThoughtSignature) > 0 {
				out.Parts = append(out.Parts, toolround.TextPart{Signature: p.ThoughtSignature})
			}
		case p.Text != "" || len(p.ThoughtSignature) > 0:
			out.Parts = append(out.Parts, toolround.TextPart{Text: p.Text, Signature: p.ThoughtSignature})
		}
	}
	return out, nil
}

func stopReason(fr genai.FinishReason) toolround.StopReason {
	switch fr {
	case genai.FinishReasonStop:
		return toolround.StopReasonStop
	case genai.FinishReasonMaxTokens:
		return toolround.StopReasonMaxTokens
	case genai.FinishReasonSafety, genai.FinishReasonRecitation, genai.FinishReasonBlocklist,
		genai.FinishReasonProhibitedContent, genai.FinishReasonSPII:
		return toolround.StopReasonSafety
	case "":
		return toolround.StopReasonUnspecified
	default:
		return toolround.StopReasonOther
	}
}

var _ toolround.Backend = (*Backend)(nil)
