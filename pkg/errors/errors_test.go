package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStatusCodes(t *testing.T) {
	cases := []struct {
		err    *AppError
		status int
	}{
		{Unauthenticated(""), http.StatusUnauthorized},
		{Forbidden(""), http.StatusForbidden},
		{NotFound("patient", nil), http.StatusNotFound},
		{Conflict("duplicate", nil), http.StatusConflict},
		{InvalidTransition("queue entry", "completed", "waiting"), http.StatusConflict},
		{Validation("bad input", map[string]string{"email": "is required"}), http.StatusUnprocessableEntity},
		{Internal(fmt.Errorf("boom")), http.StatusInternalServerError},
	}

	for _, tt := range cases {
		assert.Equal(t, tt.status, tt.err.StatusCode(), tt.err.Error())
	}
}

func TestIsMatchesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("start queue entry: %w", InvalidTransition("queue entry", "completed", "in_progress"))

	assert.True(t, Is(err, ErrInvalidTransition))
	assert.True(t, Is(err, ErrConflict))
	assert.False(t, Is(err, ErrNotFound))
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(fmt.Errorf("connection refused")))
}
