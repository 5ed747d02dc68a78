// Package httpapi binds internal/shgat's Engine and internal/store's
// persistence backends to an HTTP surface, chi handlers adapted from the
// teacher's agent handler + JSON response helpers.
package httpapi

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/iamthegreatdestroyer/shgat-engine/pkg/models"
)

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpapi: error encoding response: %v", err)
	}
}

// writeError writes a models.ErrorResponse with the given status code.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}

// readAll reads and closes an HTTP request body.
func readAll(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}
