package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
)

// WriteJSON encodes v as the response body with the given status. The body
// is buffered before any header is written so an encoding failure can still
// surface as a 500 rather than a truncated 200. Every JSON response from
// this service carries credential or account material, so caching is always
// disabled.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}

	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n"))
}

// NoCache marks a response as uncacheable. RFC 6749 requires this on any
// response carrying a token, code or other credential material.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// ParseSpaceDelimitedFields splits an OAuth-style space-delimited list, such
// as the scope parameter. Empty or all-whitespace input yields nil.
func ParseSpaceDelimitedFields(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Fields(s)
}
