package toolround

import (
	"context"
	"strings"

	"github.com/skosovsky/toolround/internal/cast"
)

// Role is the author of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Part is a sealed interface for turn content. Only package types implement it via isPart().
type Part interface {
	isPart()
}

// TextPart holds plain text content.
type TextPart struct {
	Text      string
	Signature []byte // Opaque provider token sent back unchanged when the turn is replayed
}

func (TextPart) isPart() {}

// ToolCallPart is a model request to run a named tool.
type ToolCallPart struct {
	ID        string // Empty for providers that do not issue call IDs (e.g. base Gemini)
	Name      string
	Args      map[string]any
	Signature []byte // Opaque provider token sent back unchanged when the turn is replayed
}

func (ToolCallPart) isPart() {}

// ToolResultPart carries the outcome of one tool call back to the model.
type ToolResultPart struct {
	ID     string // Matches ToolCallPart.ID
	Name   string
	Result map[string]any
}

func (ToolResultPart) isPart() {}

// Turn is one role-tagged unit of conversation content.
type Turn struct {
	Role  Role
	Parts []Part
}

// ToolSpec declares a tool to the backend. It is passed through unchanged;
// only Name and the "required" list of Parameters are read by the orchestrator.
type ToolSpec struct {
	Name        string         `json:"name"                 yaml:"name"`
	Description string         `json:"description"          yaml:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"` // JSON Schema for arguments
}

// RequiredParams returns the names listed under "required" in Parameters.
func (s ToolSpec) RequiredParams() []string {
	if s.Parameters == nil {
		return nil
	}
	required, _ := cast.ToStringSlice(s.Parameters["required"])
	return required
}

// Request is a single caller query. The caller owns history across calls and
// passes it back rendered as PriorContext.
type Request struct {
	Query        string
	PriorContext string
	Tools        []ToolSpec
}

// StopReason is the provider-neutral reason a backend stopped generating.
type StopReason string

// Stop reasons reported by backends.
const (
	StopReasonUnspecified StopReason = ""
	StopReasonStop        StopReason = "stop"
	StopReasonToolCalls   StopReason = "tool_calls"
	StopReasonMaxTokens   StopReason = "max_tokens"
	StopReasonSafety      StopReason = "safety"
	StopReasonOther       StopReason = "other"
)

// Normal reports whether the model finished its turn on its own, with or
// without requesting tools.
func (r StopReason) Normal() bool {
	return r == StopReasonStop || r == StopReasonToolCalls
}

// BackendRequest is the typed payload sent to a language-model backend.
type BackendRequest struct {
	Model           string
	System          string // Empty means no system instruction
	Turns           []Turn
	Temperature     float64
	MaxOutputTokens int32
	Tools           []ToolSpec // Nil on follow-up requests
}

// BackendResponse is the typed reply of a language-model backend.
type BackendResponse struct {
	StopReason StopReason
	Parts      []Part
}

// Text concatenates the text parts of the response.
func (r *BackendResponse) Text() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Parts {
		if t, ok := p.(TextPart); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// ToolCalls returns the tool-call parts in the order they appeared.
func (r *BackendResponse) ToolCalls() []ToolCallPart {
	if r == nil {
		return nil
	}
	var out []ToolCallPart
	for _, p := range r.Parts {
		if tc, ok := p.(ToolCallPart); ok {
			out = append(out, tc)
		}
	}
	return out
}

// Backend sends one request to a language-model service.
type Backend interface {
	Generate(ctx context.Context, req *BackendRequest) (*BackendResponse, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req *BackendRequest) (*BackendResponse, error)

// Generate calls f.
func (f BackendFunc) Generate(ctx context.Context, req *BackendRequest) (*BackendResponse, error) {
	return f(ctx, req)
}

// ToolExecutor runs named tools on behalf of the model.
// The result must be JSON-serializable.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any) (any, error)
}

// ToolExecutorFunc adapts a function to ToolExecutor.
type ToolExecutorFunc func(ctx context.Context, name string, args map[string]any) (any, error)

// Execute calls f.
func (f ToolExecutorFunc) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	return f(ctx, name, args)
}

// Compile-time checks for the function adapters.
var (
	_ Backend      = BackendFunc(nil)
	_ ToolExecutor = ToolExecutorFunc(nil)
)
