package httputil

import (
	"encoding/json"
	"net/http"
)

// Envelope is the single response contract of the bridge. Every outbound body
// is either a success envelope wrapping data, an options-list envelope for
// dropdown-rendering consumers, or a failure envelope with a human-readable
// message and optional diagnostic detail.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   any    `json:"error,omitempty"`
}

type optionList struct {
	Options any `json:"options"`
}

// Success wraps data in the generic success envelope.
func Success(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

// Options wraps a value/label list in the options envelope.
func Options(options any) Envelope {
	return Envelope{Success: true, Data: optionList{Options: options}}
}

// Fail builds a failure envelope. detail carries best-effort diagnostics
// (downstream status, body) and may be nil.
func Fail(message string, detail any) Envelope {
	return Envelope{Success: false, Message: message, Error: detail}
}

// WriteJSON writes an envelope with the given status code.
func WriteJSON(w http.ResponseWriter, requestID string, statusCode int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(env)
}
