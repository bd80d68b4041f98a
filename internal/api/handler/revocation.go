package handler

import (
	"net/http"

	"github.com/remiblancher/signpdfkit/internal/api/dto"
	"github.com/remiblancher/signpdfkit/internal/api/service"
)

// RevocationHandler handles standalone evidence collection.
type RevocationHandler struct {
	service *service.RevocationService
}

// NewRevocationHandler creates a new RevocationHandler.
func NewRevocationHandler(svc *service.RevocationService) *RevocationHandler {
	return &RevocationHandler{service: svc}
}

// Collect handles POST /api/v1/revocation/collect
func (h *RevocationHandler) Collect(w http.ResponseWriter, r *http.Request) {
	var req dto.RevocationCollectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Collect(r.Context(), &req, actorFor(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
