package common

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the error payload returned to storefront clients.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders an error response using the canonical {"error": "..."} shape.
func JSONError(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Error: message})
}

// WriteError renders err, honouring AppError status and message. Anything
// else becomes a generic 500 so internal detail never reaches the client.
func WriteError(w http.ResponseWriter, err error) {
	if appErr, ok := AsAppError(err); ok {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		JSONError(w, status, appErr.Message)
		return
	}
	JSONError(w, http.StatusInternalServerError, "An internal server error occurred.")
}
