// Package revocation collects long-term-validation evidence (OCSP responses
// and CRLs) for a CMS signature before it is embedded into a PDF.
//
// The native engine tells us which responders and distribution points are
// relevant for a signature; this package fetches them concurrently and
// assembles the raw evidence into a Bundle. Individual fetch failures are
// never fatal: a Bundle with partial evidence is the expected common case.
package revocation

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the revocation evidence variant.
type Kind string

const (
	// KindOCSP is an OCSP request to be POSTed to a responder.
	KindOCSP Kind = "ocsp"

	// KindCRL is a CRL distribution point to be fetched with GET.
	KindCRL Kind = "crl"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindOCSP, KindCRL:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	return string(k)
}

// ParseKind parses a kind tag as emitted by the native engine.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidItem, s)
	}
	return k, nil
}

// Item is a single piece of revocation evidence to fetch.
type Item struct {
	// Kind selects the fetch protocol.
	Kind Kind `json:"type"`

	// URL is the OCSP responder or CRL distribution point.
	URL string `json:"url"`

	// Request is the base64 DER OCSP request (OCSP items only).
	Request string `json:"request,omitempty"`
}

// NewOCSPItem builds an OCSP item from a DER encoded request.
func NewOCSPItem(url string, der []byte) Item {
	return Item{
		Kind:    KindOCSP,
		URL:     url,
		Request: base64.StdEncoding.EncodeToString(der),
	}
}

// NewCRLItem builds a CRL item.
func NewCRLItem(url string) Item {
	return Item{Kind: KindCRL, URL: url}
}

// RequestDER decodes the OCSP request body.
func (i Item) RequestDER() ([]byte, error) {
	if i.Kind != KindOCSP {
		return nil, fmt.Errorf("%w: %s item has no request", ErrInvalidItem, i.Kind)
	}
	der, err := base64.StdEncoding.DecodeString(strings.TrimSpace(i.Request))
	if err != nil {
		return nil, fmt.Errorf("decode OCSP request: %w", err)
	}
	return der, nil
}

// Validate checks the structural requirements of an item.
// The OCSP request payload is decoded lazily at fetch time, so a bad
// payload only drops that item.
func (i Item) Validate() error {
	if !i.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidItem, i.Kind)
	}
	if strings.TrimSpace(i.URL) == "" {
		return fmt.Errorf("%w: %s item without url", ErrInvalidItem, i.Kind)
	}
	return nil
}

// ParseItems decodes the revocation-parameters JSON array returned by the
// native engine. Entries with an unknown type tag or no URL are left out
// and reported in skipped; only a malformed array is an error.
func ParseItems(data []byte) (items []Item, skipped []error, err error) {
	var raw []struct {
		Type    string `json:"type"`
		URL     string `json:"url"`
		Request string `json:"request"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("parse revocation parameters: %w", err)
	}

	items = make([]Item, 0, len(raw))
	for idx, r := range raw {
		kind, err := ParseKind(r.Type)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("item %d: %w", idx, err))
			continue
		}
		item := Item{Kind: kind, URL: r.URL}
		if kind == KindOCSP {
			item.Request = r.Request
		}
		if err := item.Validate(); err != nil {
			skipped = append(skipped, fmt.Errorf("item %d: %w", idx, err))
			continue
		}
		items = append(items, item)
	}
	return items, skipped, nil
}

// Count returns the number of OCSP and CRL items.
func Count(items []Item) (ocsp, crl int) {
	for _, it := range items {
		switch it.Kind {
		case KindOCSP:
			ocsp++
		case KindCRL:
			crl++
		}
	}
	return ocsp, crl
}
