package relayerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError_Error(t *testing.T) {
	err := NewAPIError("gemini", 403, "forbidden")
	assert.Contains(t, err.Error(), "gemini")
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "forbidden")
}

func TestAPIError_WithWrapped(t *testing.T) {
	inner := errors.New("connection refused")
	err := &APIError{Service: "backend", StatusCode: 500, Message: "fail", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewAPIError("backend", 429, "rate limit")))
	assert.True(t, IsRetryable(NewAPIError("backend", 502, "bad gateway")))
	assert.True(t, IsRetryable(NewAPIError("backend", 503, "unavailable")))
	assert.True(t, IsRetryable(ErrTimeout))
	assert.True(t, IsRetryable(ErrUnavailable))

	assert.False(t, IsRetryable(NewAPIError("backend", 401, "unauth")))
	assert.False(t, IsRetryable(NewAPIError("backend", 404, "not found")))
	assert.False(t, IsRetryable(ErrMissingCredential))
	assert.False(t, IsRetryable(ErrStreamStalled))
}

func TestSentinelErrors(t *testing.T) {
	assert.True(t, errors.Is(ErrMissingCredential, ErrMissingCredential))
	assert.False(t, errors.Is(ErrMissingCredential, ErrStreamStalled))
}
