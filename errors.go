package toolround

import (
	"errors"
	"fmt"
)

// Sentinel errors for orchestrated exchanges.
// All use prefix "toolround:" for identification. Callers should use errors.Is/errors.As.
var (
	ErrBackend           = errors.New("toolround: language-model backend call failed")
	ErrToolExecution     = errors.New("toolround: tool execution failed")
	ErrMalformedResponse = errors.New("toolround: backend response has no usable text")
	ErrMissingArgument   = errors.New("toolround: required tool argument not provided")
	ErrUnknownTool       = errors.New("toolround: tool was not declared")
	ErrInvalidRequest    = errors.New("toolround: request is invalid")
	ErrNilBackend        = errors.New("toolround: backend must not be nil")
)

// ToolError reports a failed tool call. It unwraps to both ErrToolExecution
// and the underlying cause, so errors.Is works for either.
type ToolError struct {
	Tool   string
	CallID string
	Err    error
}

// Error implements error.
func (e *ToolError) Error() string {
	if e.CallID != "" {
		return fmt.Sprintf("toolround: tool %q (call %s): %v", e.Tool, e.CallID, e.Err)
	}
	return fmt.Sprintf("toolround: tool %q: %v", e.Tool, e.Err)
}

// Unwrap returns ErrToolExecution and the cause for errors.Is/errors.As.
func (e *ToolError) Unwrap() []error {
	return []error{ErrToolExecution, e.Err}
}

// Compile-time check that ToolError implements error.
var _ error = (*ToolError)(nil)

// backendError marks err as a backend failure unless the backend already
// classified it as a malformed response.
func backendError(err error) error {
	if errors.Is(err, ErrMalformedResponse) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrBackend, err)
}
