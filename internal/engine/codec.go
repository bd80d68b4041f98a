package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/remiblancher/signpdfkit/pkg/revocation"
	"github.com/remiblancher/signpdfkit/pkg/signpdf"
)

// digestArgs are the arguments of calculate_digest, in ABI order.
type digestArgs struct {
	InputPath     string
	ImagePath     string
	URL           string
	Location      string
	Reason        string
	ContactInfo   string
	FieldID       string
	Character     string
	SignatureType int
	Page          int
	Subfilter     int
	Visibility    int
	X             float64
	Y             float64
	Width         float64
	Height        float64
	DSS           int
}

func newDigestArgs(req *signpdf.SignRequest) digestArgs {
	return digestArgs{
		InputPath:     req.InputPath,
		ImagePath:     req.ImagePath,
		URL:           req.URL,
		Location:      req.Location,
		Reason:        req.Reason,
		ContactInfo:   req.ContactInfo,
		FieldID:       req.FieldID,
		Character:     req.Character,
		SignatureType: int(req.SignatureType),
		Page:          req.Page,
		Subfilter:     int(req.Subfilter),
		Visibility:    int(req.Visibility),
		X:             req.Rect.X,
		Y:             req.Rect.Y,
		Width:         req.Rect.Width,
		Height:        req.Rect.Height,
		DSS:           int(req.DSS),
	}
}

// preSignData mirrors the JSON returned by calculate_digest.
type preSignData struct {
	ResponseCode   int    `json:"response_code"`
	ResponseStatus string `json:"response_status"`
	Data           struct {
		Br1              int    `json:"br1"`
		Br2              int    `json:"br2"`
		Br3              int    `json:"br3"`
		Br4              int    `json:"br4"`
		CatalogObjNumber int    `json:"catalog_obj_number"`
		CatalogObjString string `json:"catalog_obj_string"`
		Digest           string `json:"digest"`
		IsDSS            int    `json:"is_dss"`
		IsTrailerStream  int    `json:"is_trailer_stream"`
		NewStartxref     int    `json:"new_startxref"`
		ObjSize          int    `json:"obj_size"`
		PDF              string `json:"pdf"`
	} `json:"data"`
}

// decodeDigest parses the native pre-sign payload. An empty payload
// yields a nil descriptor.
func decodeDigest(raw string) (*signpdf.DigestDescriptor, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var data preSignData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to parse digest JSON: %w", err)
	}
	return &signpdf.DigestDescriptor{
		ResponseCode:   data.ResponseCode,
		ResponseStatus: data.ResponseStatus,
		Digest:         data.Data.Digest,
		Raw:            raw,
	}, nil
}

// decodeRevocation parses the get_revocation_parameters payload. Entries
// that cannot be fetched are logged and left out.
func decodeRevocation(raw string, logger *zap.Logger) ([]revocation.Item, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	items, skipped, err := revocation.ParseItems([]byte(raw))
	if err != nil {
		return nil, err
	}
	for _, e := range skipped {
		logger.Warn("revocation parameter skipped", zap.Error(e))
	}
	return items, nil
}

// encodeBundle builds the embed_cms payload. A nil bundle carries the
// signature alone.
func encodeBundle(cms string, bundle *revocation.Bundle) (string, error) {
	out := revocation.NewBundle(cms)
	if bundle != nil {
		out.OCSP, out.CRL = bundle.OCSP, bundle.CRL
		if bundle.CMS != "" {
			out.CMS = bundle.CMS
		}
	}
	data, err := out.JSON()
	if err != nil {
		return "", fmt.Errorf("failed to marshal revocation bundle: %w", err)
	}
	return string(data), nil
}
