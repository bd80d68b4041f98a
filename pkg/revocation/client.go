package revocation

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http/httpproxy"
)

// Config controls how evidence is fetched.
type Config struct {
	// Timeout bounds each individual fetch. Zero disables the bound.
	Timeout time.Duration

	// MaxConcurrency caps in-flight fetches. Zero means one goroutine
	// per item with no cap.
	MaxConcurrency int

	// InsecureSkipVerify disables TLS verification of responders.
	InsecureSkipVerify bool

	// ProxyURL overrides the HTTP(S)_PROXY environment when set.
	ProxyURL string

	// UserAgent is sent with every request.
	UserAgent string
}

// DefaultConfig returns the default fetch configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:   30 * time.Second,
		UserAgent: "signpdfkit",
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("revocation timeout must not be negative")
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("revocation max_concurrency must not be negative")
	}
	if c.ProxyURL != "" {
		if _, err := url.Parse(c.ProxyURL); err != nil {
			return fmt.Errorf("invalid revocation proxy_url: %w", err)
		}
	}
	return nil
}

// NewHTTPClient builds the client shared by all fetches of a Collector.
// Timeouts are applied per item through the request context, not here.
func NewHTTPClient(cfg Config) *http.Client {
	proxy := proxyFunc(cfg.ProxyURL)

	transport := &http.Transport{
		Proxy: func(r *http.Request) (*url.URL, error) {
			return proxy(r.URL)
		},
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in via config
		},
		MaxIdleConns:        10,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &http.Client{Transport: transport}
}

func proxyFunc(explicit string) func(*url.URL) (*url.URL, error) {
	if explicit == "" {
		return httpproxy.FromEnvironment().ProxyFunc()
	}
	cfg := &httpproxy.Config{
		HTTPProxy:  explicit,
		HTTPSProxy: explicit,
	}
	return cfg.ProxyFunc()
}
