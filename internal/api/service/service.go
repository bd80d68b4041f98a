// Package service provides business logic for the REST API.
package service

import (
	"go.uber.org/zap"

	"github.com/remiblancher/signpdfkit/pkg/revocation"
	"github.com/remiblancher/signpdfkit/pkg/signpdf"
)

// Config wires the collaborators shared by every request.
type Config struct {
	Engine     signpdf.Engine
	Signer     signpdf.ExternalSigner
	SignerName string          // remote, local or pkcs11; recorded in audit events
	Options    signpdf.Options // baseline signer options
	Collector  *revocation.Collector
	Recorder   signpdf.Recorder
	Logger     *zap.Logger
}

func (c *Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
