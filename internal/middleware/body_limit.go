package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "invoice-generator/internal/pkg/errors"
	"invoice-generator/internal/pkg/response"
)

// DefaultBodyLimit caps JSON request bodies at 100 KB.
const DefaultBodyLimit int64 = 100 << 10

// ErrBodyTooLarge is returned by DecodeJSON when the limit is exceeded.
var ErrBodyTooLarge = errors.New("request entity too large")

// BodyLimit rejects requests whose declared length exceeds limit and caps
// the body reader for the rest.
func BodyLimit(limit int64) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = DefaultBodyLimit
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				response.Message(w, http.StatusRequestEntityTooLarge, ErrBodyTooLarge.Error())
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DecodeJSON decodes a JSON request body into v. Malformed bodies map to 400
// and bodies over the BodyLimit cap to 413.
func DecodeJSON(r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return apperrors.WithStatus(apperrors.ErrInvalidInput, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Content-Type must be application/json")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperrors.WithStatus(ErrBodyTooLarge, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", ErrBodyTooLarge.Error())
		}
		return apperrors.WithStatus(fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err), http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
	}
	return nil
}
