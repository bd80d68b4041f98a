package handler

import (
	"net/http"

	"github.com/remiblancher/signpdfkit/internal/api/dto"
	"github.com/remiblancher/signpdfkit/internal/api/service"
)

// SignHandler handles PDF signing and verification requests.
type SignHandler struct {
	service *service.SignService
}

// NewSignHandler creates a new SignHandler.
func NewSignHandler(svc *service.SignService) *SignHandler {
	return &SignHandler{service: svc}
}

// Sign handles POST /api/v1/sign. Every workflow outcome is a 200 whose
// body carries the response code.
func (h *SignHandler) Sign(w http.ResponseWriter, r *http.Request) {
	var req dto.SignRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Sign(r.Context(), &req, actorFor(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Verify handles POST /api/v1/verify.
func (h *SignHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Verify(r.Context(), &req, actorFor(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
