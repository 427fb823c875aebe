package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/lifelink/bloodcamp/internal/model"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("error encoding response: %v", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// jsonDomainError maps domain error types to HTTP statuses: validation
// failures are the caller's fault, capability failures point upstream, and
// anything else stays an opaque internal error.
func jsonDomainError(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	var ce *model.CapabilityError
	switch {
	case errors.As(err, &ve):
		jsonError(w, http.StatusBadRequest, ve.Error())
	case errors.As(err, &ce):
		jsonError(w, http.StatusBadGateway, ce.Error())
	default:
		log.Printf("internal error: %v", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
