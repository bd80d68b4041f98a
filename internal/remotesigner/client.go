// Package remotesigner signs digests through a remote JSON signing service.
package remotesigner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/remiblancher/signpdfkit/pkg/signpdf"
)

var (
	// ErrMissingSignature indicates a response without a "cms" field.
	ErrMissingSignature = errors.New("response has no cms field")

	// ErrStatus indicates a non-2xx response.
	ErrStatus = errors.New("signing service returned an error status")
)

// maxBodySize caps the response body read from the service.
const maxBodySize = 8 << 20

// Client posts {"digest", <options>...} and expects {"cms": "..."}.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ signpdf.ExternalSigner = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

// New creates a client for endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type signResponse struct {
	CMS     string `json:"cms"`
	Message string `json:"message,omitempty"`
}

// SignDigest sends the digest and every option to the service.
func (c *Client) SignDigest(ctx context.Context, digest string, opts signpdf.Options) (string, error) {
	payload := make(map[string]string, len(opts)+1)
	for k, v := range opts {
		payload[k] = v
	}
	payload["digest"] = digest

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("signing service unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	c.logger.Debug("signing service responded",
		zap.String("endpoint", c.endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrStatus, resp.StatusCode, excerpt(data))
	}

	var out signResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}
	if out.CMS == "" {
		if out.Message != "" {
			return "", fmt.Errorf("%w: %s", ErrMissingSignature, out.Message)
		}
		return "", ErrMissingSignature
	}
	return out.CMS, nil
}

const maxExcerpt = 200

// excerpt shortens a response body for error messages without splitting
// a UTF-8 sequence.
func excerpt(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= maxExcerpt {
		return s
	}
	n := maxExcerpt
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
