// Package httputil holds the response and request helpers shared by the
// ChainTrace HTTP APIs.
package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

// WriteJSON encodes data as the response body with the given status.
// Encoding failures are logged; the status line is already committed by then.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// WriteError writes the error envelope every ChainTrace service emits:
// {"error": message}. The CLI clients parse this exact shape.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}
