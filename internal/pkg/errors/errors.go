package errors

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrDatabaseError = errors.New("database error")
	ErrCacheError    = errors.New("cache error")
	ErrRateLimited   = errors.New("rate limit exceeded")
)

// Error carries an HTTP status and a client-safe message alongside the cause.
type Error struct {
	Err     error
	Message string
	Code    string
	Status  int
}

func (e *Error) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
		Code:    "INTERNAL_ERROR",
		Status:  http.StatusInternalServerError,
	}
}

func WithStatus(err error, status int, code, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
		Code:    code,
		Status:  status,
	}
}

// StatusOf returns the HTTP status carried by err, falling back to the sentinel mapping and then 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// MessageOf is the text shown to clients: the wrapped message, the sentinel text, or a generic 500 text.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if StatusOf(err) != http.StatusInternalServerError && err != nil {
		return err.Error()
	}
	return "Internal Server Error"
}
