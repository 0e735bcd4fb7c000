package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := InvalidArgument("quality must be between %d and %d", 1, 4)
	assert.Equal(t, "[INVALID_ARGUMENT] quality must be between 1 and 4", err.Error())

	cause := fmt.Errorf("disk full")
	wrapped := Persistence("failed to save review", cause)
	assert.Equal(t, "[PERSISTENCE] failed to save review: disk full", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestCodeOf(t *testing.T) {
	err := fmt.Errorf("handler: %w", NotFound("card %d", 7))
	assert.True(t, IsCode(err, ErrCodeNotFound))
	assert.False(t, IsCode(err, ErrCodeConflict))
	assert.Equal(t, ErrCodeNotFound, CodeOf(err))
	assert.Equal(t, ErrCodeInternal, CodeOf(fmt.Errorf("plain")))
	assert.False(t, IsCode(nil, ErrCodeNotFound))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Conflict("card changed", nil).Retryable())
	assert.True(t, Persistence("db down", nil).Retryable())
	assert.False(t, InvalidArgument("bad").Retryable())
	assert.False(t, NotFound("card").Retryable())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeInvalidArgument, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
		{ErrCodePersistence, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.code), tt.code)
	}
}
