package response

import (
	"encoding/json"
	"net/http"

	apperrors "invoice-generator/internal/pkg/errors"
)

type ErrorBody struct {
	Error string `json:"error"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// Error writes {"error": ...} using the status and client-safe message carried by err.
func Error(w http.ResponseWriter, err error) {
	JSON(w, apperrors.StatusOf(err), ErrorBody{Error: apperrors.MessageOf(err)})
}

func Message(w http.ResponseWriter, code int, message string) {
	JSON(w, code, ErrorBody{Error: message})
}
