// Package config loads the signpdfkit application configuration.
//
// Configuration comes from a YAML file, then SIGNPDFKIT_* environment
// variables, then command-line flags. Each layer overrides the previous.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/remiblancher/signpdfkit/pkg/revocation"
)

// Signer backends.
const (
	SignerRemote = "remote"
	SignerLocal  = "local"
	SignerPKCS11 = "pkcs11"
)

// Config is the root configuration document.
type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Signer     SignerConfig     `yaml:"signer"`
	Revocation RevocationConfig `yaml:"revocation"`
	Log        LogConfig        `yaml:"log"`
	Audit      AuditConfig      `yaml:"audit"`
	Server     ServerConfig     `yaml:"server"`
}

// EngineConfig locates the native signing library.
type EngineConfig struct {
	LibDir string `yaml:"lib_dir"`
}

// SignerConfig selects and configures the external signer.
type SignerConfig struct {
	Type    string            `yaml:"type"`
	Timeout Duration          `yaml:"timeout"`
	Options map[string]string `yaml:"options,omitempty"`

	// remote
	Endpoint string `yaml:"endpoint,omitempty"`

	// local
	Cert        string `yaml:"cert,omitempty"`
	Key         string `yaml:"key,omitempty"`
	CMSEncoding string `yaml:"cms_encoding,omitempty"`

	// pkcs11
	HSMConfig string `yaml:"hsm_config,omitempty"`
	KeyLabel  string `yaml:"key_label,omitempty"`
	KeyID     string `yaml:"key_id,omitempty"`
}

// RevocationConfig mirrors revocation.Config.
type RevocationConfig struct {
	Timeout            Duration `yaml:"timeout"`
	MaxConcurrency     int      `yaml:"max_concurrency"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
	ProxyURL           string   `yaml:"proxy_url,omitempty"`
	UserAgent          string   `yaml:"user_agent,omitempty"`
}

// LogConfig configures the technical logger.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// AuditConfig configures the audit trail. An empty path disables it.
type AuditConfig struct {
	Path string `yaml:"path,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	IdleTimeout     Duration `yaml:"idle_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	TLSCert         string   `yaml:"tls_cert,omitempty"`
	TLSKey          string   `yaml:"tls_key,omitempty"`
}

// Address returns the listen address.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Default returns the built-in configuration.
func Default() *Config {
	rev := revocation.DefaultConfig()
	return &Config{
		Engine: EngineConfig{LibDir: "lib"},
		Signer: SignerConfig{
			Type:        SignerRemote,
			Timeout:     Duration(60 * time.Second),
			CMSEncoding: "hex",
		},
		Revocation: RevocationConfig{
			Timeout:   Duration(rev.Timeout),
			UserAgent: rev.UserAgent,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Server: ServerConfig{
			Port:            8443,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(120 * time.Second),
			IdleTimeout:     Duration(120 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// RevocationSettings converts the revocation section for the collector.
func (c *Config) RevocationSettings() revocation.Config {
	return revocation.Config{
		Timeout:            c.Revocation.Timeout.Std(),
		MaxConcurrency:     c.Revocation.MaxConcurrency,
		InsecureSkipVerify: c.Revocation.InsecureSkipVerify,
		ProxyURL:           c.Revocation.ProxyURL,
		UserAgent:          c.Revocation.UserAgent,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Engine.LibDir == "" {
		return fmt.Errorf("engine.lib_dir is required")
	}

	switch c.Signer.Type {
	case SignerRemote:
		if c.Signer.Endpoint == "" {
			return fmt.Errorf("signer.endpoint is required for remote signer")
		}
	case SignerLocal:
		if c.Signer.Cert == "" || c.Signer.Key == "" {
			return fmt.Errorf("signer.cert and signer.key are required for local signer")
		}
	case SignerPKCS11:
		if c.Signer.HSMConfig == "" {
			return fmt.Errorf("signer.hsm_config is required for pkcs11 signer")
		}
		if c.Signer.KeyLabel == "" && c.Signer.KeyID == "" {
			return fmt.Errorf("signer.key_label or signer.key_id is required for pkcs11 signer")
		}
		if c.Signer.Cert == "" {
			return fmt.Errorf("signer.cert is required for pkcs11 signer")
		}
	default:
		return fmt.Errorf("unknown signer.type %q (expected remote, local or pkcs11)", c.Signer.Type)
	}
	if c.Signer.Timeout < 0 {
		return fmt.Errorf("signer.timeout must not be negative")
	}
	switch strings.ToLower(c.Signer.CMSEncoding) {
	case "", "hex", "base64":
	default:
		return fmt.Errorf("signer.cms_encoding must be hex or base64")
	}

	if err := c.RevocationSettings().Validate(); err != nil {
		return err
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return fmt.Errorf("server.tls_cert and server.tls_key must be set together")
	}
	return nil
}
