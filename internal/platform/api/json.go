package api

import (
	"encoding/json"
	"net/http"
)

// WriteJSON serializes v and writes it with the given status code.
// Encoding errors at this point cannot be reported to the client; the
// status line has already been committed.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
