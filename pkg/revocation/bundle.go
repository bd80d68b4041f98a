package revocation

import (
	"encoding/json"
)

// Bundle is the revocation evidence handed to the embed step.
// Evidence order follows fetch completion and carries no meaning.
type Bundle struct {
	// CMS is the signature blob, passed through verbatim.
	CMS string `json:"cms"`

	// OCSP holds base64 encoded OCSP responses.
	OCSP []string `json:"ocsp"`

	// CRL holds base64 encoded DER CRLs.
	CRL []string `json:"crl"`
}

// NewBundle returns an empty bundle for the given signature.
func NewBundle(cms string) *Bundle {
	return &Bundle{
		CMS:  cms,
		OCSP: []string{},
		CRL:  []string{},
	}
}

// Empty reports whether the bundle carries no evidence.
func (b *Bundle) Empty() bool {
	return b == nil || (len(b.OCSP) == 0 && len(b.CRL) == 0)
}

// JSON returns the wire form `{"cms":..,"ocsp":[..],"crl":[..]}`.
// Nil slices are normalized so the arrays are never null.
func (b *Bundle) JSON() ([]byte, error) {
	out := Bundle{CMS: b.CMS, OCSP: b.OCSP, CRL: b.CRL}
	if out.OCSP == nil {
		out.OCSP = []string{}
	}
	if out.CRL == nil {
		out.CRL = []string{}
	}
	return json.Marshal(out)
}
