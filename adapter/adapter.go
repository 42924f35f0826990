package adapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/skosovsky/toolround"
)

// Sentinel errors for backend implementations. Callers should use errors.Is.
// Response-side errors wrap toolround.ErrMalformedResponse so the orchestrator
// reports them as malformed replies rather than transport failures.
var (
	ErrUnsupportedRole = errors.New("adapter: unsupported turn role for this provider")
	ErrUnsupportedPart = errors.New("adapter: unsupported Part type for this provider")
	ErrMalformedArgs   = errors.New("adapter: tool call args or tool parameters are malformed")
	ErrInvalidResponse = fmt.Errorf("%w: adapter: raw response has unexpected shape", toolround.ErrMalformedResponse)
	ErrEmptyResponse   = fmt.Errorf("%w: adapter: response contains no content", toolround.ErrMalformedResponse)
	ErrNilRequest      = errors.New("adapter: request must not be nil")
)

// TextFromParts extracts concatenated text from parts, ignoring non-text parts.
func TextFromParts(parts []toolround.Part) string {
	var b strings.Builder
	for _, p := range parts {
		if t, ok := p.(toolround.TextPart); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// ArgsJSON encodes tool call arguments; nil args encode as "{}".
func ArgsJSON(args map[string]any) (string, error) {
	if len(args) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedArgs, err)
	}
	return string(b), nil
}

// ParseArgs decodes a provider's JSON argument string. Empty input yields an empty map.
func ParseArgs(raw string) (map[string]any, error) {
	args := make(map[string]any)
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", toolround.ErrMalformedResponse, ErrMalformedArgs, err)
	}
	if args == nil {
		args = make(map[string]any)
	}
	return args, nil
}

// ResultJSON encodes a tool result mapping for providers that carry results as text.
func ResultJSON(result map[string]any) (string, error) {
	if result == nil {
		return "{}", nil
	}
	b, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("%w: tool result is not JSON-serializable: %w", ErrMalformedArgs, err)
	}
	return string(b), nil
}
