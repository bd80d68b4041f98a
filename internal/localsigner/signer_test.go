package localsigner

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"encoding/hex"
	"math/big"
	"testing"
	"time"

	"github.com/remiblancher/signpdfkit/internal/cms"
	"github.com/remiblancher/signpdfkit/internal/keystore"
)

func testCredential(t *testing.T) *keystore.Credential {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(42),
		Subject:      pkix.Name{CommonName: "Local Signer"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	cert, _ := x509.ParseCertificate(der)
	return &keystore.Credential{Signer: key, Certificate: cert}
}

func TestU_DecodeDigest(t *testing.T) {
	sum := sha256.Sum256([]byte("x"))

	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"[Unit] DecodeDigest: hex", hex.EncodeToString(sum[:]), false},
		{"[Unit] DecodeDigest: padded hex", "  " + hex.EncodeToString(sum[:]) + "\n", false},
		{"[Unit] DecodeDigest: base64", base64.StdEncoding.EncodeToString(sum[:]), false},
		{"[Unit] DecodeDigest: empty", "", true},
		{"[Unit] DecodeDigest: garbage", "not a digest!", true},
		{"[Unit] DecodeDigest: wrong length", base64.StdEncoding.EncodeToString([]byte("short")), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := DecodeDigest(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeDigest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && string(raw) != string(sum[:]) {
				t.Errorf("DecodeDigest() = %x, want %x", raw, sum)
			}
		})
	}
}

func TestU_Signer_SignDigest_Encodings(t *testing.T) {
	cred := testCredential(t)
	sum := sha256.Sum256([]byte("byte range"))
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, enc := range []Encoding{EncodingHex, EncodingBase64} {
		s := New(cred, WithEncoding(enc), WithClock(func() time.Time { return fixed }))

		out, err := s.SignDigest(context.Background(), hex.EncodeToString(sum[:]), nil)
		if err != nil {
			t.Fatalf("SignDigest(%s) error = %v", enc, err)
		}

		var der []byte
		if enc == EncodingHex {
			der, err = hex.DecodeString(out)
		} else {
			der, err = base64.StdEncoding.DecodeString(out)
		}
		if err != nil {
			t.Fatalf("output is not %s: %v", enc, err)
		}

		var ci cms.ContentInfo
		if _, err := asn1.Unmarshal(der, &ci); err != nil {
			t.Fatalf("output is not a ContentInfo: %v", err)
		}
		if !ci.ContentType.Equal(cms.OIDSignedData) {
			t.Errorf("ContentType = %v", ci.ContentType)
		}

		var sd cms.SignedData
		if _, err := asn1.Unmarshal(ci.Content.Bytes, &sd); err != nil {
			t.Fatalf("content is not a SignedData: %v", err)
		}
		certs, err := x509.ParseCertificates(sd.Certificates.Bytes)
		if err != nil {
			t.Fatalf("embedded certificates do not parse: %v", err)
		}
		if len(certs) != 1 || !certs[0].Equal(cred.Certificate) {
			t.Errorf("embedded certificates = %d, want the signer certificate", len(certs))
		}
	}
}

func TestU_Signer_SignDigest_BadDigest(t *testing.T) {
	s := New(testCredential(t))
	if out, err := s.SignDigest(context.Background(), "zz", nil); err == nil || out != "" {
		t.Errorf("SignDigest() = %q, %v, want error", out, err)
	}
}

func TestU_ParseEncoding(t *testing.T) {
	if e, err := ParseEncoding(""); err != nil || e != EncodingHex {
		t.Errorf("ParseEncoding(\"\") = %s, %v", e, err)
	}
	if e, err := ParseEncoding("BASE64"); err != nil || e != EncodingBase64 {
		t.Errorf("ParseEncoding(BASE64) = %s, %v", e, err)
	}
	if _, err := ParseEncoding("pem"); err == nil {
		t.Error("ParseEncoding(pem) should fail")
	}
}
