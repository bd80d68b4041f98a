package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/remiblancher/signpdfkit/pkg/revocation"
	"github.com/remiblancher/signpdfkit/pkg/signpdf"
)

var (
	// ErrCgoRequired is returned by Open in binaries built without cgo.
	ErrCgoRequired = errors.New("native engine requires cgo (build with CGO_ENABLED=1)")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("native engine closed")

	// ErrNotSupported is returned when the loaded library lacks an
	// optional entry point.
	ErrNotSupported = errors.New("not supported by native library")
)

// abi is the string-in/string-out surface of the native library.
// The bool results are false when the library returned NULL.
type abi interface {
	calculateDigest(args digestArgs) (string, bool)
	revocationParameters(cms string) (string, bool)
	embedCMS(preSign, bundle, outputPath string) int
	verify(path string) (string, bool)
	signatureExists(path string) (int, bool)
	close() error
}

// Native implements signpdf.Engine over the native library.
type Native struct {
	lib    Library
	logger *zap.Logger

	mu     sync.Mutex // serializes calls into the library
	abi    abi
	closed bool
}

var _ signpdf.Engine = (*Native)(nil)

// Option configures a Native engine.
type Option func(*Native)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(n *Native) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// Open loads the library described by lib.
func Open(lib Library, opts ...Option) (*Native, error) {
	a, err := loadABI(lib.Path())
	if err != nil {
		return nil, err
	}
	n := newNative(lib, a, opts...)
	n.logger.Info("native engine loaded", zap.String("path", lib.Path()))
	return n, nil
}

func newNative(lib Library, a abi, opts ...Option) *Native {
	n := &Native{lib: lib, abi: a, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Library returns the library this engine was loaded from.
func (n *Native) Library() Library {
	return n.lib
}

// Close unloads the library. It is safe to call more than once.
func (n *Native) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true
	return n.abi.close()
}

// ComputeDigest calls calculate_digest.
func (n *Native) ComputeDigest(ctx context.Context, req *signpdf.SignRequest) (*signpdf.DigestDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	args := newDigestArgs(req)

	raw, ok, err := call(n, func(a abi) (string, bool) { return a.calculateDigest(args) })
	if err != nil || !ok {
		return nil, err
	}
	return decodeDigest(raw)
}

// RevocationParameters calls get_revocation_parameters.
func (n *Native) RevocationParameters(ctx context.Context, cms string) ([]revocation.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, ok, err := call(n, func(a abi) (string, bool) { return a.revocationParameters(cms) })
	if err != nil || !ok {
		return nil, err
	}
	return decodeRevocation(raw, n.logger)
}

// Embed calls embed_cms. A missing entry point yields -1.
func (n *Native) Embed(ctx context.Context, desc *signpdf.DigestDescriptor, cms string, bundle *revocation.Bundle, outputPath string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if desc == nil {
		return 0, fmt.Errorf("nil digest descriptor")
	}
	payload, err := encodeBundle(cms, bundle)
	if err != nil {
		return 0, err
	}

	code, _, err := call(n, func(a abi) (int, bool) { return a.embedCMS(desc.Raw, payload, outputPath), true })
	return code, err
}

// Verify calls verify. A NULL result is reported as an empty report.
func (n *Native) Verify(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	report, _, err := call(n, func(a abi) (string, bool) { return a.verify(path) })
	return report, err
}

// SignatureExists calls is_signature_exist.
func (n *Native) SignatureExists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	code, ok, err := call(n, func(a abi) (int, bool) { return a.signatureExists(path) })
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("is_signature_exist: %w", ErrNotSupported)
	}
	return code == 1, nil
}

func call[T any](n *Native, fn func(abi) (T, bool)) (T, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var zero T
	if n.closed {
		return zero, false, ErrClosed
	}
	v, ok := fn(n.abi)
	return v, ok, nil
}
