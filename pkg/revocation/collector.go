package revocation

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ocsp"
)

const (
	contentTypeOCSPRequest  = "application/ocsp-request"
	contentTypeOCSPResponse = "application/ocsp-response"

	// maxEvidenceSize caps a single response body. CRLs of large CAs run
	// to tens of megabytes.
	maxEvidenceSize = 64 << 20
)

// Observer receives one call per finished fetch.
type Observer interface {
	ObserveFetch(kind string, ok bool, elapsed time.Duration)
}

// Outcome is the tagged result of fetching one item: either Evidence
// (raw DER) or Err is set.
type Outcome struct {
	Item     Item
	Evidence []byte
	Err      error
	Elapsed  time.Duration
}

// OK reports whether the fetch succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Collector fetches OCSP and CRL evidence concurrently.
// A Collector holds no per-call state and is safe for concurrent use.
type Collector struct {
	cfg      Config
	client   *http.Client
	logger   *zap.Logger
	observer Observer
	maxBody  int64
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithHTTPClient replaces the client built from Config.
func WithHTTPClient(client *http.Client) CollectorOption {
	return func(c *Collector) { c.client = client }
}

// WithLogger sets the logger used for dropped items.
func WithLogger(logger *zap.Logger) CollectorOption {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers a fetch observer (metrics).
func WithObserver(o Observer) CollectorOption {
	return func(c *Collector) { c.observer = o }
}

// NewCollector creates a Collector.
func NewCollector(cfg Config, opts ...CollectorOption) *Collector {
	c := &Collector{
		cfg:     cfg,
		logger:  zap.NewNop(),
		maxBody: maxEvidenceSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = NewHTTPClient(cfg)
	}
	return c
}

// Collect fetches every item and assembles the bundle. It never fails:
// items that could not be fetched are logged and left out.
func (c *Collector) Collect(ctx context.Context, cms string, items []Item) *Bundle {
	return c.Assemble(cms, c.Fetch(ctx, items))
}

// Fetch runs one fetch per item concurrently and waits for all of them.
// Outcomes are returned in completion order.
func (c *Collector) Fetch(ctx context.Context, items []Item) []Outcome {
	if len(items) == 0 {
		return nil
	}

	var sem chan struct{}
	if c.cfg.MaxConcurrency > 0 {
		sem = make(chan struct{}, c.cfg.MaxConcurrency)
	}

	results := make(chan Outcome, len(items))
	var wg sync.WaitGroup

	for _, item := range items {
		wg.Add(1)
		go func(item Item) {
			defer wg.Done()
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					results <- Outcome{Item: item, Err: c.wrap(item, ctx.Err())}
					return
				}
			}
			results <- c.fetchOne(ctx, item)
		}(item)
	}

	wg.Wait()
	close(results)

	outcomes := make([]Outcome, 0, len(items))
	for o := range results {
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// Assemble turns outcomes into a bundle. Failed outcomes are dropped on
// purpose; the signature is embedded with whatever evidence was obtained.
func (c *Collector) Assemble(cms string, outcomes []Outcome) *Bundle {
	bundle := NewBundle(cms)
	for _, o := range outcomes {
		if !o.OK() {
			c.logger.Warn("revocation evidence dropped",
				zap.String("kind", o.Item.Kind.String()),
				zap.String("url", o.Item.URL),
				zap.Error(o.Err),
			)
			continue
		}
		encoded := base64.StdEncoding.EncodeToString(o.Evidence)
		switch o.Item.Kind {
		case KindOCSP:
			bundle.OCSP = append(bundle.OCSP, encoded)
		case KindCRL:
			bundle.CRL = append(bundle.CRL, encoded)
		}
	}
	return bundle
}

func (c *Collector) fetchOne(ctx context.Context, item Item) Outcome {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	var (
		evidence []byte
		err      error
	)
	switch item.Kind {
	case KindOCSP:
		evidence, err = c.fetchOCSP(ctx, item)
	case KindCRL:
		evidence, err = c.fetchCRL(ctx, item)
	default:
		err = fmt.Errorf("%w: unknown kind %q", ErrInvalidItem, item.Kind)
	}
	elapsed := time.Since(start)

	if c.observer != nil {
		c.observer.ObserveFetch(item.Kind.String(), err == nil, elapsed)
	}
	if err != nil {
		return Outcome{Item: item, Err: c.wrap(item, err), Elapsed: elapsed}
	}

	c.logger.Debug("revocation evidence fetched",
		zap.String("kind", item.Kind.String()),
		zap.String("url", item.URL),
		zap.Int("bytes", len(evidence)),
		zap.Duration("elapsed", elapsed),
	)
	return Outcome{Item: item, Evidence: evidence, Elapsed: elapsed}
}

func (c *Collector) fetchOCSP(ctx context.Context, item Item) ([]byte, error) {
	der, err := item.RequestDER()
	if err != nil {
		return nil, err
	}

	if serial, ok := ocspSerial(der); ok {
		c.logger.Debug("querying OCSP responder",
			zap.String("url", item.URL),
			zap.String("serial", serial),
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, item.URL, bytes.NewReader(der))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeOCSPRequest)
	req.Header.Set("Accept", contentTypeOCSPResponse)

	return c.do(req)
}

func (c *Collector) fetchCRL(ctx context.Context, item Item) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return ExtractCRLDER(body), nil
}

func (c *Collector) do(req *http.Request) ([]byte, error) {
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, statusError(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrEvidenceTooLarge, c.maxBody)
	}
	return body, nil
}

func (c *Collector) wrap(item Item, err error) error {
	return &FetchError{Kind: item.Kind, URL: item.URL, Err: err}
}

// ocspSerial extracts the queried certificate serial for logging.
func ocspSerial(der []byte) (string, bool) {
	req, err := ocsp.ParseRequest(der)
	if err != nil || req.SerialNumber == nil {
		return "", false
	}
	return req.SerialNumber.Text(16), true
}
