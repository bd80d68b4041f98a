package signpdf

import (
	"context"
	"time"

	"github.com/remiblancher/signpdfkit/pkg/revocation"
)

// Engine is the native PDF engine. Implementations are synchronous local
// calls; the context is only honoured where the binding can do so.
type Engine interface {
	// ComputeDigest prepares the signature placeholder and returns the
	// digest to sign. A nil descriptor means the engine produced nothing.
	ComputeDigest(ctx context.Context, req *SignRequest) (*DigestDescriptor, error)

	// RevocationParameters lists the OCSP/CRL requests needed to validate
	// the signer chain found in cms. An empty list means nothing to fetch.
	RevocationParameters(ctx context.Context, cms string) ([]revocation.Item, error)

	// Embed writes the signed document to outputPath. A nil bundle means
	// no revocation evidence. It returns the native exit code.
	Embed(ctx context.Context, desc *DigestDescriptor, cms string, bundle *revocation.Bundle, outputPath string) (int, error)

	// Verify returns the engine's verification report for a signed file.
	Verify(ctx context.Context, path string) (string, error)
}

// Options are opaque caller credentials forwarded to the signer
// (for example email and passcode of a remote signing account).
type Options map[string]string

// Clone returns a copy of o.
func (o Options) Clone() Options {
	if o == nil {
		return Options{}
	}
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// ExternalSigner turns a digest into a CMS signature blob.
// Implementations must return an error rather than an empty blob.
type ExternalSigner interface {
	SignDigest(ctx context.Context, digest string, opts Options) (string, error)
}

// SignerFunc adapts a function to ExternalSigner.
type SignerFunc func(ctx context.Context, digest string, opts Options) (string, error)

// SignDigest calls f.
func (f SignerFunc) SignDigest(ctx context.Context, digest string, opts Options) (string, error) {
	return f(ctx, digest, opts)
}

// Recorder receives the outcome of each sign attempt.
type Recorder interface {
	ObserveSign(code int, elapsed time.Duration)
}
