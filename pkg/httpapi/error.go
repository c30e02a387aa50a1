// Package httpapi holds the JSON error envelope every layer of the HTTP
// surface shares: middleware, controllers, and the server's 404/405
// handlers all answer errors in this shape.
package httpapi

import (
	"encoding/json"
	"net/http"
)

// ErrorEnvelope is the single error response shape of the API. Code is a
// stable machine-readable identifier; Meta carries per-field detail for
// validation failures.
type ErrorEnvelope struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}
