// Package errors maps service errors to HTTP status codes.
package errors

import (
	"errors"
	"net/http"
	"strings"

	"github.com/remiblancher/signpdfkit/internal/api/dto"
	"github.com/remiblancher/signpdfkit/internal/engine"
	"github.com/remiblancher/signpdfkit/pkg/revocation"
	"github.com/remiblancher/signpdfkit/pkg/signpdf"
)

// Error codes for API responses.
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidItem       = "INVALID_REVOCATION_ITEM"
	CodeEngineUnavailable = "ENGINE_UNAVAILABLE"
	CodeNotSupported      = "NOT_SUPPORTED"
	CodeAuditFailed       = "AUDIT_FAILED"
	CodeInternal          = "INTERNAL_ERROR"
)

// ErrAudit marks a failure to record an audit event.
var ErrAudit = errors.New("audit log failed")

// MapError maps an internal error to an HTTP status code and APIError.
func MapError(err error) (int, *dto.APIError) {
	if err == nil {
		return http.StatusOK, nil
	}

	switch {
	case errors.Is(err, signpdf.ErrInvalidInput):
		return http.StatusBadRequest, NewValidationError(err.Error(), nil)
	case errors.Is(err, revocation.ErrInvalidItem):
		return http.StatusBadRequest, &dto.APIError{Code: CodeInvalidItem, Message: err.Error()}
	case errors.Is(err, engine.ErrClosed), errors.Is(err, engine.ErrCgoRequired):
		return http.StatusServiceUnavailable, &dto.APIError{Code: CodeEngineUnavailable, Message: err.Error()}
	case errors.Is(err, engine.ErrNotSupported):
		return http.StatusNotImplemented, &dto.APIError{Code: CodeNotSupported, Message: err.Error()}
	case errors.Is(err, ErrAudit):
		return http.StatusInternalServerError, &dto.APIError{Code: CodeAuditFailed, Message: err.Error()}
	}

	var wfErr *signpdf.Error
	if errors.As(err, &wfErr) {
		return http.StatusInternalServerError, &dto.APIError{
			Code:    "SIGN_" + strings.ToUpper(string(wfErr.Phase)) + "_ERROR",
			Message: wfErr.Error(),
			Details: map[string]string{"phase": string(wfErr.Phase)},
		}
	}

	return http.StatusInternalServerError, &dto.APIError{
		Code:    CodeInternal,
		Message: "An internal error occurred",
	}
}

// NewBadRequest creates a bad request error.
func NewBadRequest(message string) *dto.APIError {
	return &dto.APIError{Code: CodeInvalidRequest, Message: message}
}

// NewValidationError creates a validation error.
func NewValidationError(message string, details map[string]string) *dto.APIError {
	return &dto.APIError{Code: CodeValidation, Message: message, Details: details}
}
