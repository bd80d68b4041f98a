// Package server provides HTTP server configuration and lifecycle management.
package server

import (
	"fmt"
	"time"

	"github.com/remiblancher/signpdfkit/internal/config"
)

// Config holds the server configuration.
type Config struct {
	Host string
	Port int

	// TLS is enabled when both are set.
	TLSCert string
	TLSKey  string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return FromAppConfig(config.Default().Server)
}

// FromAppConfig converts the server section of the application config.
func FromAppConfig(s config.ServerConfig) *Config {
	return &Config{
		Host:            s.Host,
		Port:            s.Port,
		TLSCert:         s.TLSCert,
		TLSKey:          s.TLSKey,
		ReadTimeout:     s.ReadTimeout.Std(),
		WriteTimeout:    s.WriteTimeout.Std(),
		IdleTimeout:     s.IdleTimeout.Std(),
		ShutdownTimeout: s.ShutdownTimeout.Std(),
	}
}

// Address returns the listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TLSEnabled reports whether the server terminates TLS.
func (c *Config) TLSEnabled() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}
