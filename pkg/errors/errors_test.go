package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := ErrUnsupported.WithMessage("requeue not supported by bulk source")
	wrapped := fmt.Errorf("requeue: %w", err)

	assert.True(t, errors.Is(wrapped, ErrUnsupported))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
	assert.True(t, IsUnsupported(wrapped))
	assert.Equal(t, http.StatusNotImplemented, ToHTTPStatus(wrapped))
}

func TestError_WithDetailDoesNotMutateSentinel(t *testing.T) {
	derived := ErrNotFound.WithDetail("name", "orders")

	assert.Equal(t, "orders", derived.Details["name"])
	assert.Empty(t, ErrNotFound.Details)
}

func TestError_Retryable(t *testing.T) {
	tests := []struct {
		name      string
		err       *Error
		retryable bool
		fatal     bool
	}{
		{"validation", ErrValidation, false, true},
		{"unavailable", ErrServiceUnavailable, true, false},
		{"unsupported", ErrUnsupported, false, false},
		{"forced fatal", ErrServiceUnavailable.AsFatal(), false, true},
		{"fatal cause", ErrInternal.WithCause(ErrValidation), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.err.IsRetryable())
			assert.Equal(t, tt.fatal, tt.err.IsFatal())
		})
	}
}

func TestToErrorResponse(t *testing.T) {
	resp := ToErrorResponse(errors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", resp["error_code"])

	resp = ToErrorResponse(ErrNotFound.WithDetail("stream", "orders"))
	assert.Equal(t, "NOT_FOUND", resp["error_code"])
	assert.Equal(t, map[string]interface{}{"stream": "orders"}, resp["details"])
}

func TestGuard(t *testing.T) {
	assert.NoError(t, Guard(func() {}))

	err := Guard(func() { panic("kaboom") })
	require.Error(t, err)

	var appErr *Error
	require.True(t, errors.As(err, &appErr))
	assert.True(t, appErr.IsFatal())
	assert.Equal(t, true, appErr.Details["panic"])
	assert.Contains(t, err.Error(), "kaboom")
}
