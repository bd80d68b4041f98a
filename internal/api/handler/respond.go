// Package handler provides HTTP handlers for the REST API.
package handler

import (
	"encoding/json"
	"io"
	"net"
	"net/http"

	"github.com/remiblancher/signpdfkit/internal/api/dto"
	apierrors "github.com/remiblancher/signpdfkit/internal/api/errors"
	"github.com/remiblancher/signpdfkit/internal/audit"
)

const maxBodySize = 1 << 20

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError writes an error response.
func respondError(w http.ResponseWriter, status int, apiErr *dto.APIError) {
	respondJSON(w, status, apiErr)
}

// handleServiceError maps err and writes it.
func handleServiceError(w http.ResponseWriter, err error) {
	status, apiErr := apierrors.MapError(err)
	respondError(w, status, apiErr)
}

// decodeJSON reads a bounded JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("Invalid JSON request body: "+err.Error()))
		return false
	}
	return true
}

// actorFor attributes an audit event to the calling client.
func actorFor(r *http.Request) *audit.Actor {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return &audit.Actor{Type: "service", ID: "api", Host: host}
}
