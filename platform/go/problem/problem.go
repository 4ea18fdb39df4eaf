// Package problem renders RFC 7807 problem documents for the hand-written chi handlers.
package problem

import (
	"encoding/json"
	"net/http"
)

const ContentType = "application/problem+json"

// Problem type URIs shared by every domain handler.
const (
	TypeValidation   = "https://rentboard.app/problems/validation-error"
	TypeUnauthorized = "https://rentboard.app/problems/unauthorized"
	TypeForbidden    = "https://rentboard.app/problems/forbidden"
	TypeNotFound     = "https://rentboard.app/problems/not-found"
	TypeConflict     = "https://rentboard.app/problems/conflict"
	TypeUpstream     = "https://rentboard.app/problems/upstream-error"
	TypeInternal     = "https://rentboard.app/problems/internal-error"
)

// Details is the problem document body.
type Details struct {
	Type   *string              `json:"type,omitempty"`
	Title  string               `json:"title"`
	Status int                  `json:"status"`
	Detail *string              `json:"detail,omitempty"`
	Code   *string              `json:"code,omitempty"`
	Errors *map[string][]string `json:"errors,omitempty"`
}

// Write sends the problem with its own status code.
func Write(w http.ResponseWriter, p Details) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WriteJSON sends a regular JSON response body.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}
