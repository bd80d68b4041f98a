package signpdf

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/remiblancher/signpdfkit/pkg/revocation"
)

// fakeEngine records every call and returns canned results.
type fakeEngine struct {
	mu sync.Mutex

	digest    *DigestDescriptor
	digestErr error

	items    []revocation.Item
	itemsErr error

	embedCode int
	embedErr  error

	report    string
	reportErr error

	digestCalls     int
	revocationCalls int
	embedCalls      int
	verifyCalls     int

	embeddedCMS    string
	embeddedBundle *revocation.Bundle
	embeddedDesc   *DigestDescriptor
	embeddedOutput string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		digest: &DigestDescriptor{
			ResponseCode:   0,
			ResponseStatus: "success",
			Digest:         "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
			Raw:            `{"response_code":0}`,
		},
	}
}

func (f *fakeEngine) ComputeDigest(_ context.Context, _ *SignRequest) (*DigestDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.digestCalls++
	return f.digest, f.digestErr
}

func (f *fakeEngine) RevocationParameters(_ context.Context, _ string) ([]revocation.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revocationCalls++
	return f.items, f.itemsErr
}

func (f *fakeEngine) Embed(_ context.Context, desc *DigestDescriptor, cms string, bundle *revocation.Bundle, out string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embedCalls++
	f.embeddedDesc = desc
	f.embeddedCMS = cms
	f.embeddedBundle = bundle
	f.embeddedOutput = out
	return f.embedCode, f.embedErr
}

func (f *fakeEngine) Verify(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	return f.report, f.reportErr
}

// fakeSigner returns a fixed blob or error and records its inputs.
type fakeSigner struct {
	cms   string
	err   error
	calls int

	gotDigest  string
	gotOptions Options
}

func (s *fakeSigner) SignDigest(_ context.Context, digest string, opts Options) (string, error) {
	s.calls++
	s.gotDigest = digest
	s.gotOptions = opts
	return s.cms, s.err
}

// failTransport fails every request so tests can assert no network I/O.
type failTransport struct {
	t *testing.T
}

func (ft failTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	ft.t.Errorf("unexpected network request to %s", r.URL)
	return nil, http.ErrServerClosed
}

func offlineCollector(t *testing.T) *revocation.Collector {
	return revocation.NewCollector(revocation.DefaultConfig(),
		revocation.WithHTTPClient(&http.Client{Transport: failTransport{t: t}}))
}

type recordedSign struct {
	code    int
	elapsed time.Duration
}

type fakeRecorder struct {
	signs []recordedSign
}

func (r *fakeRecorder) ObserveSign(code int, elapsed time.Duration) {
	r.signs = append(r.signs, recordedSign{code: code, elapsed: elapsed})
}

func validRequest(t *testing.T) *SignRequest {
	t.Helper()
	return DefaultSignRequest("in.pdf", "out.pdf")
}
