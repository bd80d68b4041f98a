// Package localsigner signs digests in-process with a key loaded by the
// keystore package.
package localsigner

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/remiblancher/signpdfkit/internal/cms"
	"github.com/remiblancher/signpdfkit/internal/keystore"
	"github.com/remiblancher/signpdfkit/pkg/signpdf"
)

// Encoding is the text form of the returned CMS blob.
type Encoding string

const (
	EncodingHex    Encoding = "hex"
	EncodingBase64 Encoding = "base64"
)

// ParseEncoding parses "hex" or "base64". Empty means hex.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hex":
		return EncodingHex, nil
	case "base64":
		return EncodingBase64, nil
	default:
		return "", fmt.Errorf("unknown cms encoding %q", s)
	}
}

// Signer implements signpdf.ExternalSigner with a local credential.
type Signer struct {
	cred     *keystore.Credential
	encoding Encoding
	now      func() time.Time
	logger   *zap.Logger
}

var _ signpdf.ExternalSigner = (*Signer)(nil)

// Option configures a Signer.
type Option func(*Signer)

// WithEncoding sets the CMS output encoding.
func WithEncoding(e Encoding) Option {
	return func(s *Signer) { s.encoding = e }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Signer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the signing-time source.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

// New creates a Signer.
func New(cred *keystore.Credential, opts ...Option) *Signer {
	s := &Signer{
		cred:     cred,
		encoding: EncodingHex,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignDigest builds a detached CMS over the hex or base64 digest.
// Options are ignored; the credential is fixed at construction.
func (s *Signer) SignDigest(ctx context.Context, digest string, _ signpdf.Options) (string, error) {
	raw, err := DecodeDigest(digest)
	if err != nil {
		return "", err
	}

	der, err := cms.SignDigest(ctx, raw, &cms.SignerConfig{
		Certificate: s.cred.Certificate,
		Chain:       s.cred.Chain,
		Signer:      s.cred.Signer,
		SigningTime: s.now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("local signing failed: %w", err)
	}

	s.logger.Debug("digest signed locally",
		zap.String("subject", s.cred.Certificate.Subject.CommonName),
		zap.Int("cms_bytes", len(der)),
	)

	if s.encoding == EncodingBase64 {
		return base64.StdEncoding.EncodeToString(der), nil
	}
	return hex.EncodeToString(der), nil
}

// DecodeDigest accepts a hex (SHA-256/384/512 length) or base64 digest.
func DecodeDigest(digest string) ([]byte, error) {
	d := strings.TrimSpace(digest)
	if d == "" {
		return nil, fmt.Errorf("empty digest")
	}
	switch len(d) {
	case 64, 96, 128:
		if raw, err := hex.DecodeString(d); err == nil {
			return raw, nil
		}
	}
	raw, err := base64.StdEncoding.DecodeString(d)
	if err != nil {
		return nil, fmt.Errorf("digest is neither hex nor base64: %w", err)
	}
	if _, err := cms.DigestAlgForLength(len(raw)); err != nil {
		return nil, err
	}
	return raw, nil
}
