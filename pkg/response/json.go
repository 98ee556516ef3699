package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the standard JSON response structure for the API.
type Envelope struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail carries machine-readable error information.
type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

// JSON writes a success envelope with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{Data: data})
}

// JSONWithMeta writes a success envelope including metadata such as counts.
func JSONWithMeta(w http.ResponseWriter, status int, data any, meta map[string]any) {
	write(w, status, Envelope{Data: data, Meta: meta})
}

// Error writes an error envelope with the given status and error code.
func Error(w http.ResponseWriter, status int, code, message string) {
	write(w, status, Envelope{Error: &ErrorDetail{Code: code, Message: message}})
}

// ValidationError writes a 400 envelope with per-field detail messages.
func ValidationError(w http.ResponseWriter, details map[string][]string) {
	write(w, http.StatusBadRequest, Envelope{Error: &ErrorDetail{
		Code:    "validation_error",
		Message: "request validation failed",
		Details: details,
	}})
}

func write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
