package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/remiblancher/signpdfkit/internal/config"
	"github.com/remiblancher/signpdfkit/internal/engine"
	"github.com/remiblancher/signpdfkit/internal/keystore"
	"github.com/remiblancher/signpdfkit/internal/localsigner"
	"github.com/remiblancher/signpdfkit/internal/remotesigner"
	"github.com/remiblancher/signpdfkit/pkg/signpdf"
)

// nativeEngine is what the commands need from the engine binding.
type nativeEngine interface {
	signpdf.Engine
	io.Closer
}

// openEngine loads the native library for the host platform. Tests
// replace it with a fake.
var openEngine = func(cfg *config.Config, logger *zap.Logger) (nativeEngine, string, error) {
	lib, err := engine.ResolveHostLibrary(cfg.Engine.LibDir)
	if err != nil {
		return nil, "", err
	}
	n, err := engine.Open(lib, engine.WithLogger(logger))
	if err != nil {
		return nil, "", fmt.Errorf("failed to load %s: %w", lib.Path(), err)
	}
	return n, lib.Platform + "/" + lib.File, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newSigner builds the external signer selected by signer.type.
func newSigner(cfg config.SignerConfig, logger *zap.Logger) (signpdf.ExternalSigner, io.Closer, error) {
	switch cfg.Type {
	case config.SignerRemote:
		client := remotesigner.New(cfg.Endpoint,
			remotesigner.WithHTTPClient(&http.Client{Timeout: cfg.Timeout.Std()}),
			remotesigner.WithLogger(logger),
		)
		return client, nopCloser{}, nil

	case config.SignerLocal, config.SignerPKCS11:
		enc, err := localsigner.ParseEncoding(cfg.CMSEncoding)
		if err != nil {
			return nil, nil, err
		}

		var cred *keystore.Credential
		if cfg.Type == config.SignerLocal {
			cred, err = keystore.LoadSoftware(cfg.Cert, cfg.Key)
		} else {
			cred, err = keystore.LoadHSM(cfg.HSMConfig, cfg.KeyLabel, cfg.KeyID, cfg.Cert)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load %s signer: %w", cfg.Type, err)
		}
		return localsigner.New(cred, localsigner.WithEncoding(enc), localsigner.WithLogger(logger)), cred, nil

	default:
		return nil, nil, fmt.Errorf("unknown signer type %q", cfg.Type)
	}
}

// signatureChecker is implemented by engines that can test for an
// existing signature without a full verification.
type signatureChecker interface {
	SignatureExists(ctx context.Context, path string) (bool, error)
}
