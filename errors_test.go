package toolround

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolError_Error(t *testing.T) {
	t.Parallel()
	err := &ToolError{Tool: "search", CallID: "c7", Err: errors.New("timeout")}
	assert.Equal(t, `toolround: tool "search" (call c7): timeout`, err.Error())
	err.CallID = ""
	assert.Equal(t, `toolround: tool "search": timeout`, err.Error())
}

func TestToolError_Unwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("boom")
	outer := fmt.Errorf("outer: %w", &ToolError{Tool: "t", Err: cause})
	require.ErrorIs(t, outer, ErrToolExecution)
	require.ErrorIs(t, outer, cause)
	var te *ToolError
	require.ErrorAs(t, outer, &te)
	assert.Equal(t, "t", te.Tool)
}

func TestBackendError(t *testing.T) {
	t.Parallel()
	cause := errors.New("503")
	err := backendError(cause)
	assert.ErrorIs(t, err, ErrBackend)
	assert.ErrorIs(t, err, cause)

	malformed := fmt.Errorf("%w: no candidates", ErrMalformedResponse)
	assert.Same(t, malformed, backendError(malformed))
}

func TestSentinelErrors_Prefix(t *testing.T) {
	t.Parallel()
	for _, err := range []error{
		ErrBackend, ErrToolExecution, ErrMalformedResponse, ErrMissingArgument,
		ErrUnknownTool, ErrInvalidRequest, ErrNilBackend,
	} {
		assert.Contains(t, err.Error(), "toolround:")
	}
}
