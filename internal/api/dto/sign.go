package dto

import (
	"fmt"

	"github.com/remiblancher/signpdfkit/pkg/signpdf"
)

// Rect is the visible signature rectangle in PDF user-space points.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SignRequest represents a PDF signing request. Paths are resolved on
// the server's filesystem.
type SignRequest struct {
	InputPath  string `json:"input_path"`
	OutputPath string `json:"output_path"`

	// Appearance
	ImagePath   string `json:"image_path,omitempty"`
	URL         string `json:"url,omitempty"`
	Location    string `json:"location,omitempty"`
	Reason      string `json:"reason,omitempty"`
	ContactInfo string `json:"contact_info,omitempty"`
	FieldID     string `json:"field_id,omitempty"`
	Character   string `json:"character,omitempty"`
	Page        int    `json:"page,omitempty"` // 1-based, default 1
	Rect        *Rect  `json:"rect,omitempty"`

	// Enum names: "signature"|"seal", "adbe"|"pades",
	// "invisible"|"visible_image"|..., "no"|"yes".
	SignatureType string `json:"signature_type,omitempty"`
	Subfilter     string `json:"subfilter,omitempty"`
	Visibility    string `json:"visibility,omitempty"`
	DSS           string `json:"dss,omitempty"`

	// Options are forwarded to the external signer on top of the
	// server's configured options (e.g. email, passcode).
	Options map[string]string `json:"options,omitempty"`
}

// ToSignRequest converts the DTO, applying defaults for omitted fields.
// Enum parse failures wrap signpdf.ErrInvalidInput.
func (r *SignRequest) ToSignRequest() (*signpdf.SignRequest, error) {
	req := signpdf.DefaultSignRequest(r.InputPath, r.OutputPath)
	for dst, src := range map[*string]string{
		&req.ImagePath:   r.ImagePath,
		&req.URL:         r.URL,
		&req.Location:    r.Location,
		&req.Reason:      r.Reason,
		&req.ContactInfo: r.ContactInfo,
		&req.FieldID:     r.FieldID,
		&req.Character:   r.Character,
	} {
		if src != "" {
			*dst = src
		}
	}
	if r.Page != 0 {
		req.Page = r.Page
	}
	if r.Rect != nil {
		req.Rect = signpdf.Rect{X: r.Rect.X, Y: r.Rect.Y, Width: r.Rect.Width, Height: r.Rect.Height}
	}

	var err error
	if r.SignatureType != "" {
		if req.SignatureType, err = signpdf.ParseSignatureType(r.SignatureType); err != nil {
			return nil, fmt.Errorf("signature_type: %w", err)
		}
	}
	if r.Subfilter != "" {
		if req.Subfilter, err = signpdf.ParseSubfilter(r.Subfilter); err != nil {
			return nil, fmt.Errorf("subfilter: %w", err)
		}
	}
	if r.Visibility != "" {
		if req.Visibility, err = signpdf.ParseVisibility(r.Visibility); err != nil {
			return nil, fmt.Errorf("visibility: %w", err)
		}
	}
	if r.DSS != "" {
		if req.DSS, err = signpdf.ParseDSSMode(r.DSS); err != nil {
			return nil, fmt.Errorf("dss: %w", err)
		}
	}
	return req, nil
}

// SignResponse carries the workflow result unchanged plus the attempt ID.
type SignResponse struct {
	ResponseCode   int    `json:"response_code"`
	ResponseStatus string `json:"response_status"`
	AttemptID      string `json:"attempt_id"`
}
