package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"plain", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped sentinel", fmt.Errorf("lookup: %w", ErrNotFound), http.StatusNotFound},
		{"invalid", ErrInvalidInput, http.StatusBadRequest},
		{"rate", ErrRateLimited, http.StatusTooManyRequests},
		{"explicit", WithStatus(nil, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "too big"), http.StatusRequestEntityTooLarge},
		{"wrap", Wrap(ErrNotFound, "db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "Internal Server Error", MessageOf(errors.New("secret detail")))
	assert.Equal(t, "resource not found", MessageOf(ErrNotFound))
	assert.Equal(t, "db down", MessageOf(Wrap(errors.New("x"), "db down")))
}

func TestErrorUnwrap(t *testing.T) {
	err := Wrap(ErrDatabaseError, "query failed")

	assert.True(t, errors.Is(err, ErrDatabaseError))
	assert.Equal(t, "query failed", err.Error())
	assert.Equal(t, "INTERNAL_ERROR", err.Code)
}
