package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf_WrappedError(t *testing.T) {
	base := New(CodeNoJSONFound, "the model reply contained no JSON object").WithDiagnostic("sorry, no")
	wrapped := fmt.Errorf("stage analyze: %w", base)

	assert.Equal(t, CodeNoJSONFound, CodeOf(wrapped))
	assert.True(t, Is(wrapped, CodeNoJSONFound))
	assert.False(t, Is(wrapped, CodeMalformedJSON))
	assert.Equal(t, "the model reply contained no JSON object", Message(wrapped))
	assert.Equal(t, "sorry, no", Diagnostic(wrapped))
}

func TestCodeOf_Unclassified(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Equal(t, "an unknown server error occurred", Message(err))
	assert.Empty(t, Diagnostic(err))
	assert.False(t, Is(nil, CodeInternal))
}

func TestWrap_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(CodeGatewayUnavailable, "model gateway unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "GATEWAY_UNAVAILABLE")
	assert.Contains(t, err.Error(), "connection refused")
}
