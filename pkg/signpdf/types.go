// Package signpdf orchestrates detached CMS signing of PDF documents.
//
// A sign attempt computes a digest with the native engine, hands it to an
// external signer, optionally collects OCSP/CRL evidence for the Document
// Security Store and finally embeds the signature into the output file.
// Every outcome is reported as a SignResult.
package signpdf

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// SignatureType selects an approval signature or a document seal.
type SignatureType int

const (
	SignatureTypeSignature SignatureType = 0
	SignatureTypeSeal      SignatureType = 1
)

// String returns the name of the signature type.
func (t SignatureType) String() string {
	switch t {
	case SignatureTypeSignature:
		return "signature"
	case SignatureTypeSeal:
		return "seal"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Valid reports whether t is a known signature type.
func (t SignatureType) Valid() bool {
	return t == SignatureTypeSignature || t == SignatureTypeSeal
}

// ParseSignatureType parses "signature" or "seal".
func ParseSignatureType(s string) (SignatureType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "signature", "sign":
		return SignatureTypeSignature, nil
	case "seal":
		return SignatureTypeSeal, nil
	default:
		return 0, fmt.Errorf("%w: unknown signature type %q", ErrInvalidInput, s)
	}
}

// Subfilter is the /SubFilter of the signature dictionary.
type Subfilter int

const (
	SubfilterADBE  Subfilter = 0 // adbe.pkcs7.detached
	SubfilterPAdES Subfilter = 1 // ETSI.CAdES.detached
)

// String returns the name of the subfilter.
func (s Subfilter) String() string {
	switch s {
	case SubfilterADBE:
		return "adbe"
	case SubfilterPAdES:
		return "pades"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Valid reports whether s is a known subfilter.
func (s Subfilter) Valid() bool {
	return s == SubfilterADBE || s == SubfilterPAdES
}

// ParseSubfilter parses "adbe" or "pades".
func ParseSubfilter(s string) (Subfilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "adbe":
		return SubfilterADBE, nil
	case "pades":
		return SubfilterPAdES, nil
	default:
		return 0, fmt.Errorf("%w: unknown subfilter %q", ErrInvalidInput, s)
	}
}

// Visibility controls the appearance of the signature field.
type Visibility int

const (
	VisibilityInvisible            Visibility = 0
	VisibilityVisibleImage         Visibility = 1
	VisibilityVisibleQR            Visibility = 2
	VisibilityVisibleImageFromChar Visibility = 3
	VisibilityVisibleQRFromChar    Visibility = 4
)

var visibilityNames = map[Visibility]string{
	VisibilityInvisible:            "invisible",
	VisibilityVisibleImage:         "visible_image",
	VisibilityVisibleQR:            "visible_qr",
	VisibilityVisibleImageFromChar: "visible_image_from_char",
	VisibilityVisibleQRFromChar:    "visible_qr_from_char",
}

// String returns the name of the visibility mode.
func (v Visibility) String() string {
	if name, ok := visibilityNames[v]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(v))
}

// Valid reports whether v is a known visibility mode.
func (v Visibility) Valid() bool {
	_, ok := visibilityNames[v]
	return ok
}

// ParseVisibility parses a visibility name. Dashes are accepted in place
// of underscores.
func ParseVisibility(s string) (Visibility, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for v, name := range visibilityNames {
		if name == norm {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown visibility %q", ErrInvalidInput, s)
}

// DSSMode requests embedding of revocation evidence.
type DSSMode int

const (
	DSSNo  DSSMode = 0
	DSSYes DSSMode = 1
)

// String returns "no" or "yes".
func (d DSSMode) String() string {
	switch d {
	case DSSNo:
		return "no"
	case DSSYes:
		return "yes"
	default:
		return fmt.Sprintf("unknown(%d)", int(d))
	}
}

// Valid reports whether d is a known DSS mode.
func (d DSSMode) Valid() bool {
	return d == DSSNo || d == DSSYes
}

// ParseDSSMode parses "yes"/"no" (and "true"/"false").
func ParseDSSMode(s string) (DSSMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "no", "false", "0":
		return DSSNo, nil
	case "yes", "true", "1":
		return DSSYes, nil
	default:
		return 0, fmt.Errorf("%w: unknown dss mode %q", ErrInvalidInput, s)
	}
}

// Rect is the placement of a visible signature, in PDF user space units.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SignRequest carries every parameter of one sign attempt.
type SignRequest struct {
	InputPath     string
	OutputPath    string
	ImagePath     string
	URL           string
	Location      string
	Reason        string
	ContactInfo   string
	FieldID       string
	Character     string
	SignatureType SignatureType
	Page          int
	Subfilter     Subfilter
	Visibility    Visibility
	Rect          Rect
	DSS           DSSMode
}

// DefaultSignRequest returns a request for in → out with the default
// appearance parameters.
func DefaultSignRequest(in, out string) *SignRequest {
	return &SignRequest{
		InputPath:     in,
		OutputPath:    out,
		ImagePath:     "example.png",
		URL:           "signpdfkit.com",
		Location:      "Jakarta",
		Reason:        "Need to sign",
		ContactInfo:   "signpdfkit@gmail.com",
		FieldID:       "SignPDFKit",
		Character:     "#",
		SignatureType: SignatureTypeSignature,
		Page:          1,
		Subfilter:     SubfilterADBE,
		Visibility:    VisibilityInvisible,
		Rect:          Rect{Width: 50, Height: 50},
		DSS:           DSSNo,
	}
}

// Validate checks the request before any native call.
func (r *SignRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil request", ErrInvalidInput)
	}
	if !isPDFPath(r.InputPath) {
		return fmt.Errorf("%w: input path %q is not a .pdf file", ErrInvalidInput, r.InputPath)
	}
	if !isPDFPath(r.OutputPath) {
		return fmt.Errorf("%w: output path %q is not a .pdf file", ErrInvalidInput, r.OutputPath)
	}
	if r.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidInput, r.Page)
	}
	if !r.SignatureType.Valid() {
		return fmt.Errorf("%w: signature type %s", ErrInvalidInput, r.SignatureType)
	}
	if !r.Subfilter.Valid() {
		return fmt.Errorf("%w: subfilter %s", ErrInvalidInput, r.Subfilter)
	}
	if !r.Visibility.Valid() {
		return fmt.Errorf("%w: visibility %s", ErrInvalidInput, r.Visibility)
	}
	if !r.DSS.Valid() {
		return fmt.Errorf("%w: dss %s", ErrInvalidInput, r.DSS)
	}
	return nil
}

func isPDFPath(p string) bool {
	if strings.TrimSpace(p) == "" {
		return false
	}
	return strings.EqualFold(filepath.Ext(p), ".pdf")
}

// DigestDescriptor is the native engine's pre-signing result.
// Raw is the exact native payload; it is replayed into Embed unchanged.
type DigestDescriptor struct {
	ResponseCode   int
	ResponseStatus string
	Digest         string
	Raw            string
}

// ResponseCode is the stable outcome code of a sign attempt.
type ResponseCode int

const (
	CodeSuccess       ResponseCode = 0
	CodeDocumentRead  ResponseCode = 1
	CodeInvalidInput  ResponseCode = 3
	CodeProcessFailed ResponseCode = 4
	CodeFileNotFound  ResponseCode = 5
	CodeImageNotFound ResponseCode = 6
)

var statusTexts = map[ResponseCode]string{
	CodeSuccess:       "success",
	CodeDocumentRead:  "Failed to open/read document",
	CodeInvalidInput:  "Input parameters is incorrect",
	CodeProcessFailed: "Failed when process PDF",
	CodeFileNotFound:  "PDF File not found",
	CodeImageNotFound: "Visualization Image not found",
}

// Status returns the status text of a code.
func (c ResponseCode) Status() string {
	if s, ok := statusTexts[c]; ok {
		return s
	}
	return statusTexts[CodeProcessFailed]
}

// StatusForNativeCode maps a non-zero native digest code to the code and
// status surfaced to the caller. Unknown codes become CodeProcessFailed.
func StatusForNativeCode(native int) (ResponseCode, string) {
	switch c := ResponseCode(native); c {
	case CodeDocumentRead, CodeProcessFailed, CodeFileNotFound, CodeImageNotFound:
		return c, c.Status()
	default:
		return CodeProcessFailed, CodeProcessFailed.Status()
	}
}

// SignResult is the sole outcome of a sign attempt.
type SignResult struct {
	ResponseCode   int    `json:"response_code"`
	ResponseStatus string `json:"response_status"`
}

// Success reports whether the document was signed.
func (r SignResult) Success() bool {
	return r.ResponseCode == int(CodeSuccess)
}

// JSON returns `{"response_code":..,"response_status":..}`.
func (r SignResult) JSON() string {
	data, _ := json.Marshal(r)
	return string(data)
}

func result(code ResponseCode, status string) SignResult {
	return SignResult{ResponseCode: int(code), ResponseStatus: status}
}
