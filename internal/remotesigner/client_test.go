package remotesigner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/remiblancher/signpdfkit/pkg/signpdf"
)

func TestU_Client_SignDigest(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"cms":"3082abcd"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithHTTPClient(srv.Client()))
	cms, err := c.SignDigest(context.Background(), "deadbeef", signpdf.Options{
		"email":    "user@example.com",
		"passcode": "123456",
	})
	if err != nil {
		t.Fatalf("SignDigest() error = %v", err)
	}
	if cms != "3082abcd" {
		t.Errorf("cms = %q", cms)
	}
	if got["digest"] != "deadbeef" || got["email"] != "user@example.com" || got["passcode"] != "123456" {
		t.Errorf("payload = %v", got)
	}
}

func TestU_Client_SignDigest_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{"[Unit] SignDigest: missing cms", 200, `{"status":"ok"}`, ErrMissingSignature, ""},
		{"[Unit] SignDigest: empty cms", 200, `{"cms":""}`, ErrMissingSignature, ""},
		{"[Unit] SignDigest: message carried", 200, `{"message":"wrong passcode"}`, ErrMissingSignature, "wrong passcode"},
		{"[Unit] SignDigest: non-2xx", 401, `{"message":"unauthorized"}`, ErrStatus, "HTTP 401"},
		{"[Unit] SignDigest: invalid JSON", 200, `<html>`, nil, "invalid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			cms, err := New(srv.URL).SignDigest(context.Background(), "d", nil)
			if err == nil {
				t.Fatalf("SignDigest() = %q, want error", cms)
			}
			if cms != "" {
				t.Errorf("cms = %q, want empty on error", cms)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestU_Client_SignDigest_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).SignDigest(context.Background(), "d", nil)
	if err == nil || !strings.Contains(err.Error(), "unreachable") {
		t.Errorf("SignDigest() error = %v, want unreachable", err)
	}
}

func TestU_Excerpt(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantLen int
	}{
		{"[Unit] excerpt: short body kept", "  bad request \n", len("bad request")},
		{"[Unit] excerpt: ascii cut at limit", strings.Repeat("a", 300), maxExcerpt + len("...")},
		{"[Unit] excerpt: multi-byte rune not split", strings.Repeat("a", maxExcerpt-1) + strings.Repeat("é", 10), maxExcerpt - 1 + len("...")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := excerpt([]byte(tt.body))
			if !utf8.ValidString(got) {
				t.Errorf("excerpt() = %q is not valid UTF-8", got)
			}
			if len(got) != tt.wantLen {
				t.Errorf("len(excerpt()) = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}
