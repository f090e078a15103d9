package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	err := Validation("record_transaction", "amount must be positive")

	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrNotFound)

	wrapped := fmt.Errorf("handler: %w", err)
	assert.ErrorIs(t, wrapped, ErrValidation)
	assert.Equal(t, KindValidation, KindOf(wrapped))
}

func TestError_Message(t *testing.T) {
	cause := errors.New("connection refused")
	err := Storage("transactions.create", cause)

	assert.Equal(t, "transactions.create: storage failure: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal error", PublicMessage(err))

	nf := NotFound("approve", "pending payment")
	assert.Equal(t, "pending payment not found", PublicMessage(nf))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("op", "bad"), http.StatusBadRequest},
		{NotFound("op", "business"), http.StatusNotFound},
		{Conflict("op", "already approved"), http.StatusConflict},
		{Notification("op", errors.New("timeout")), http.StatusBadGateway},
		{Storage("op", errors.New("boom")), http.StatusInternalServerError},
		{errors.New("foreign"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}
