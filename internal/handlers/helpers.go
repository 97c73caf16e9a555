package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// SessionHeader carries the caller's session identity. Every job-scoped
// endpoint reads it; there is no other authentication layer.
const SessionHeader = "X-Session-ID"

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// SessionFromRequest extracts the caller's session id from the request
// header, falling back to the "session" query parameter for clients that
// cannot set headers (browser WebSocket constructors).
func SessionFromRequest(r *http.Request) string {
	if session := strings.TrimSpace(r.Header.Get(SessionHeader)); session != "" {
		return session
	}
	return strings.TrimSpace(r.URL.Query().Get("session"))
}

// PathID extracts the trailing path segment after prefix.
// Example: PathID("/api/search/abc", "/api/search/") -> "abc".
func PathID(path, prefix string) string {
	id := strings.TrimPrefix(path, prefix)
	id = strings.Trim(id, "/")
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
