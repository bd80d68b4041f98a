package handler

import (
	"net/http"

	"github.com/remiblancher/signpdfkit/internal/api/dto"
)

// ReadinessCheck reports whether one dependency is usable.
type ReadinessCheck func() bool

// HealthHandler handles health and readiness endpoints.
type HealthHandler struct {
	version string
	engine  string
	signer  string
	checks  map[string]ReadinessCheck
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(version, engine, signer string, checks map[string]ReadinessCheck) *HealthHandler {
	return &HealthHandler{version: version, engine: engine, signer: signer, checks: checks}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, dto.HealthResponse{
		Status:  "ok",
		Version: h.version,
		Engine:  h.engine,
		Signer:  h.signer,
	})
}

// Ready handles GET /ready.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := dto.ReadyResponse{Ready: true, Checks: map[string]bool{"server": true}}
	for name, check := range h.checks {
		ok := check()
		resp.Checks[name] = ok
		resp.Ready = resp.Ready && ok
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}
