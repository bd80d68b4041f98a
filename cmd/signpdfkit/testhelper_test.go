package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/remiblancher/signpdfkit/internal/audit"
	"github.com/remiblancher/signpdfkit/internal/config"
	"github.com/remiblancher/signpdfkit/pkg/revocation"
	"github.com/remiblancher/signpdfkit/pkg/signpdf"
)

// executeCommand executes a Cobra command with the given args and returns output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err = root.Execute()
	return buf.String(), err
}

// resetFlags restores every package-level flag variable.
func resetFlags() {
	configPath, logLevel, auditLogPath = "", "", ""
	*signFlags = *signpdf.DefaultSignRequest("", "")
	def := signpdf.DefaultSignRequest("", "")
	signType = def.SignatureType.String()
	signSubf = def.Subfilter.String()
	signVis = def.Visibility.String()
	signDSS = def.DSS.String()
	signOptions = map[string]string{}
	verifyCheckOnly = false
	revocationItemsPath, revocationCMS = "", ""
	serveHost, servePort = "", 0
}

// testContext holds test resources.
type testContext struct {
	t       *testing.T
	tempDir string
}

func newTestContext(t *testing.T) *testContext {
	t.Helper()
	resetFlags()
	t.Cleanup(func() {
		resetFlags()
		_ = audit.Close()
	})
	return &testContext{t: t, tempDir: t.TempDir()}
}

// path returns a path within the temp directory.
func (tc *testContext) path(name string) string {
	return filepath.Join(tc.tempDir, name)
}

// writeFile writes content to a file in the temp directory.
func (tc *testContext) writeFile(name, content string) string {
	tc.t.Helper()
	path := tc.path(name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		tc.t.Fatalf("Failed to write file %s: %v", name, err)
	}
	return path
}

// fakeEngine stands in for the native library.
type fakeEngine struct {
	mu      sync.Mutex
	report  string
	signed  bool
	items   []revocation.Item
	bundle  *revocation.Bundle
	lastReq *signpdf.SignRequest
	closed  bool
}

func (e *fakeEngine) ComputeDigest(_ context.Context, req *signpdf.SignRequest) (*signpdf.DigestDescriptor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastReq = req
	return &signpdf.DigestDescriptor{Digest: "c0ffee", Raw: `{"digest":"c0ffee"}`}, nil
}

func (e *fakeEngine) RevocationParameters(context.Context, string) ([]revocation.Item, error) {
	return e.items, nil
}

func (e *fakeEngine) Embed(_ context.Context, _ *signpdf.DigestDescriptor, _ string, b *revocation.Bundle, out string) (int, error) {
	e.mu.Lock()
	e.bundle = b
	e.mu.Unlock()
	return 0, os.WriteFile(out, []byte("%PDF-1.7 signed"), 0600)
}

func (e *fakeEngine) Verify(context.Context, string) (string, error) {
	return e.report, nil
}

func (e *fakeEngine) SignatureExists(context.Context, string) (bool, error) {
	return e.signed, nil
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return nil
}

// useFakeEngine installs e as the engine for the duration of the test.
func useFakeEngine(t *testing.T, e *fakeEngine) {
	t.Helper()
	orig := openEngine
	openEngine = func(*config.Config, *zap.Logger) (nativeEngine, string, error) {
		return e, "fake", nil
	}
	t.Cleanup(func() { openEngine = orig })
}

// newSigningService returns a remote signing endpoint that echoes the
// digest and records the options it received.
func newSigningService(t *testing.T) (*httptest.Server, *map[string]string) {
	t.Helper()
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"cms": "3082" + got["digest"]})
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

// writeConfig writes a configuration selecting the remote signer at endpoint.
func (tc *testContext) writeConfig(endpoint string, extra string) string {
	tc.t.Helper()
	var b strings.Builder
	b.WriteString("engine:\n  lib_dir: " + tc.tempDir + "\n")
	b.WriteString("signer:\n  type: remote\n  endpoint: " + endpoint + "\n")
	b.WriteString("  options:\n    email: ops@example.com\n    passcode: \"123456\"\n")
	b.WriteString("log:\n  level: error\n")
	b.WriteString(extra)
	return tc.writeFile("signpdfkit.yaml", b.String())
}

func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
}
