package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SIGNPDFKIT_"

// ApplyEnv overrides fields from SIGNPDFKIT_* variables.
// Signer options are read from SIGNPDFKIT_SIGNER_OPTION_<NAME>.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv, os.Environ())
}

func (c *Config) applyEnv(lookup func(string) (string, bool), environ []string) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}
	dur := func(name string, dst *Duration) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = Duration(d)
		return nil
	}
	flag := func(name string, dst *bool) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
		return nil
	}

	str("LIB_DIR", &c.Engine.LibDir)

	str("SIGNER_TYPE", &c.Signer.Type)
	str("SIGNER_ENDPOINT", &c.Signer.Endpoint)
	str("SIGNER_CERT", &c.Signer.Cert)
	str("SIGNER_KEY", &c.Signer.Key)
	str("SIGNER_CMS_ENCODING", &c.Signer.CMSEncoding)
	str("SIGNER_HSM_CONFIG", &c.Signer.HSMConfig)
	str("SIGNER_KEY_LABEL", &c.Signer.KeyLabel)
	str("SIGNER_KEY_ID", &c.Signer.KeyID)

	str("REVOCATION_PROXY_URL", &c.Revocation.ProxyURL)
	str("REVOCATION_USER_AGENT", &c.Revocation.UserAgent)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_FILE", &c.Log.File)

	str("AUDIT_PATH", &c.Audit.Path)

	str("SERVER_HOST", &c.Server.Host)
	str("SERVER_TLS_CERT", &c.Server.TLSCert)
	str("SERVER_TLS_KEY", &c.Server.TLSKey)

	for _, err := range []error{
		dur("SIGNER_TIMEOUT", &c.Signer.Timeout),
		dur("REVOCATION_TIMEOUT", &c.Revocation.Timeout),
		num("REVOCATION_MAX_CONCURRENCY", &c.Revocation.MaxConcurrency),
		flag("REVOCATION_INSECURE_SKIP_VERIFY", &c.Revocation.InsecureSkipVerify),
		num("SERVER_PORT", &c.Server.Port),
	} {
		if err != nil {
			return err
		}
	}

	optPrefix := EnvPrefix + "SIGNER_OPTION_"
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, optPrefix) {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, optPrefix))
		if name == "" {
			continue
		}
		if c.Signer.Options == nil {
			c.Signer.Options = make(map[string]string)
		}
		c.Signer.Options[name] = value
	}
	return nil
}
