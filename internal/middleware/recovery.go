package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	apperrors "invoice-generator/internal/pkg/errors"
	"invoice-generator/internal/pkg/response"

	"github.com/sirupsen/logrus"
)

// HandlerFunc is an http.HandlerFunc that may fail. Returned errors are
// rendered by ErrorHandler.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Recovery turns a panic into a 500 JSON response and logs the stack.
func Recovery(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := newResponseWriter(w)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.WithFields(logrus.Fields{
					"request_id": RequestIDFromContext(r.Context()),
					"path":       r.URL.Path,
					"stack":      string(debug.Stack()),
				}).Errorf("panic: %v", rec)
				if !rw.wroteHeader {
					response.Error(rw, fmt.Errorf("panic: %v", rec))
				}
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

// ErrorHandler adapts h to http.Handler. A returned error becomes
// {"error": message} with apperrors.StatusOf(err); 5xx errors are logged.
func ErrorHandler(log *logrus.Logger, h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}
		status := apperrors.StatusOf(err)
		if status >= http.StatusInternalServerError {
			log.WithError(err).WithFields(logrus.Fields{
				"request_id": RequestIDFromContext(r.Context()),
				"path":       r.URL.Path,
			}).Error("Request failed")
		}
		response.Error(w, err)
	})
}
