package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/remiblancher/signpdfkit/pkg/revocation"
	"github.com/remiblancher/signpdfkit/pkg/signpdf"
)

const samplePreSign = `{"response_code":0,"response_status":"success","data":{"br1":0,"br2":120,"br3":16505,"br4":300,"catalog_obj_number":1,"catalog_obj_string":"<<>>","digest":"abcdef","is_dss":0,"is_trailer_stream":0,"new_startxref":4096,"obj_size":12,"pdf":"JVBERi0="}}`

// fakeABI returns canned native payloads and records arguments.
type fakeABI struct {
	digest     string
	digestNull bool
	revocation string
	revNull    bool
	embedCode  int
	report     string
	exists     int
	noExists   bool

	gotArgs    digestArgs
	gotPreSign string
	gotBundle  string
	gotOutput  string
	closed     int
}

func (f *fakeABI) calculateDigest(a digestArgs) (string, bool) {
	f.gotArgs = a
	return f.digest, !f.digestNull
}

func (f *fakeABI) revocationParameters(string) (string, bool) {
	return f.revocation, !f.revNull
}

func (f *fakeABI) embedCMS(pre, bundle, out string) int {
	f.gotPreSign, f.gotBundle, f.gotOutput = pre, bundle, out
	return f.embedCode
}

func (f *fakeABI) verify(string) (string, bool) {
	return f.report, f.report != ""
}

func (f *fakeABI) signatureExists(string) (int, bool) {
	return f.exists, !f.noExists
}

func (f *fakeABI) close() error {
	f.closed++
	return nil
}

func TestU_Native_ComputeDigest(t *testing.T) {
	fa := &fakeABI{digest: samplePreSign}
	n := newNative(Library{}, fa)

	req := signpdf.DefaultSignRequest("in.pdf", "out.pdf")
	req.Subfilter = signpdf.SubfilterPAdES
	req.Visibility = signpdf.VisibilityVisibleQR
	req.Rect = signpdf.Rect{X: 10, Y: 20, Width: 30, Height: 40}
	req.DSS = signpdf.DSSYes

	desc, err := n.ComputeDigest(context.Background(), req)
	if err != nil {
		t.Fatalf("ComputeDigest() error = %v", err)
	}
	if desc.ResponseCode != 0 || desc.Digest != "abcdef" || desc.Raw != samplePreSign {
		t.Errorf("descriptor = %+v", desc)
	}

	want := digestArgs{
		InputPath: "in.pdf", ImagePath: "example.png", URL: "signpdfkit.com",
		Location: "Jakarta", Reason: "Need to sign", ContactInfo: "signpdfkit@gmail.com",
		FieldID: "SignPDFKit", Character: "#", SignatureType: 0, Page: 1,
		Subfilter: 1, Visibility: 2, X: 10, Y: 20, Width: 30, Height: 40, DSS: 1,
	}
	if fa.gotArgs != want {
		t.Errorf("args = %+v, want %+v", fa.gotArgs, want)
	}
}

func TestU_Native_ComputeDigest_Empty(t *testing.T) {
	for _, fa := range []*fakeABI{{digestNull: true}, {digest: ""}, {digest: "  "}} {
		desc, err := newNative(Library{}, fa).ComputeDigest(context.Background(), signpdf.DefaultSignRequest("a.pdf", "b.pdf"))
		if err != nil || desc != nil {
			t.Errorf("ComputeDigest() = %+v, %v, want nil, nil", desc, err)
		}
	}
}

func TestU_Native_ComputeDigest_BadJSON(t *testing.T) {
	n := newNative(Library{}, &fakeABI{digest: "{not json"})
	if _, err := n.ComputeDigest(context.Background(), signpdf.DefaultSignRequest("a.pdf", "b.pdf")); err == nil {
		t.Error("ComputeDigest() should fail on malformed JSON")
	}
}

func TestU_Native_ComputeDigest_NativeError(t *testing.T) {
	n := newNative(Library{}, &fakeABI{digest: `{"response_code":5,"response_status":"PDF File not found"}`})
	desc, err := n.ComputeDigest(context.Background(), signpdf.DefaultSignRequest("a.pdf", "b.pdf"))
	if err != nil {
		t.Fatalf("ComputeDigest() error = %v", err)
	}
	if desc.ResponseCode != 5 || desc.Digest != "" {
		t.Errorf("descriptor = %+v", desc)
	}
}

func TestU_Native_RevocationParameters(t *testing.T) {
	req := base64.StdEncoding.EncodeToString([]byte{0x30, 0x00})
	fa := &fakeABI{revocation: `[{"type":"ocsp","request":"` + req + `","url":"http://ocsp"},{"type":"crl","url":"http://crl"}]`}

	items, err := newNative(Library{}, fa).RevocationParameters(context.Background(), "cms")
	if err != nil {
		t.Fatalf("RevocationParameters() error = %v", err)
	}
	ocsp, crl := revocation.Count(items)
	if ocsp != 1 || crl != 1 {
		t.Errorf("Count() = %d, %d", ocsp, crl)
	}

	mixed := &fakeABI{revocation: `[{"type":"crl","url":"http://crl"},{"type":"tsa","url":"http://tsa"},{"type":"ocsp","url":""}]`}
	items, err = newNative(Library{}, mixed).RevocationParameters(context.Background(), "cms")
	if err != nil {
		t.Fatalf("RevocationParameters() with invalid entries error = %v", err)
	}
	if ocsp, crl := revocation.Count(items); ocsp != 0 || crl != 1 {
		t.Errorf("Count() with invalid entries = %d, %d, want 0, 1", ocsp, crl)
	}

	for _, fa := range []*fakeABI{{revNull: true}, {revocation: ""}} {
		items, err := newNative(Library{}, fa).RevocationParameters(context.Background(), "cms")
		if err != nil || items != nil {
			t.Errorf("RevocationParameters() = %v, %v, want nil, nil", items, err)
		}
	}
}

func TestU_Native_Embed(t *testing.T) {
	fa := &fakeABI{}
	n := newNative(Library{}, fa)
	desc := &signpdf.DigestDescriptor{Raw: samplePreSign}

	code, err := n.Embed(context.Background(), desc, "cms-hex", nil, "out.pdf")
	if err != nil || code != 0 {
		t.Fatalf("Embed() = %d, %v", code, err)
	}
	if fa.gotPreSign != samplePreSign || fa.gotOutput != "out.pdf" {
		t.Errorf("embed args = %q, %q", fa.gotPreSign, fa.gotOutput)
	}
	if fa.gotBundle != `{"cms":"cms-hex","ocsp":[],"crl":[]}` {
		t.Errorf("bundle payload = %s", fa.gotBundle)
	}

	bundle := &revocation.Bundle{CMS: "cms-hex", OCSP: []string{"AA=="}}
	if _, err := n.Embed(context.Background(), desc, "cms-hex", bundle, "out.pdf"); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	var decoded revocation.Bundle
	if err := json.Unmarshal([]byte(fa.gotBundle), &decoded); err != nil {
		t.Fatalf("bundle payload is not JSON: %v", err)
	}
	if len(decoded.OCSP) != 1 || decoded.CRL == nil {
		t.Errorf("decoded bundle = %+v", decoded)
	}
}

func TestU_Native_Embed_Code(t *testing.T) {
	n := newNative(Library{}, &fakeABI{embedCode: -1})
	code, err := n.Embed(context.Background(), &signpdf.DigestDescriptor{}, "cms", nil, "out.pdf")
	if err != nil || code != -1 {
		t.Errorf("Embed() = %d, %v, want -1", code, err)
	}
}

func TestU_Native_VerifyAndExists(t *testing.T) {
	n := newNative(Library{}, &fakeABI{report: "report", exists: 1})

	report, err := n.Verify(context.Background(), "a.pdf")
	if err != nil || report != "report" {
		t.Errorf("Verify() = %q, %v", report, err)
	}
	ok, err := n.SignatureExists(context.Background(), "a.pdf")
	if err != nil || !ok {
		t.Errorf("SignatureExists() = %v, %v", ok, err)
	}

	n = newNative(Library{}, &fakeABI{noExists: true})
	if _, err := n.SignatureExists(context.Background(), "a.pdf"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("SignatureExists() error = %v, want ErrNotSupported", err)
	}
}

func TestU_Native_Close(t *testing.T) {
	fa := &fakeABI{report: "r"}
	n := newNative(Library{}, fa)

	if err := n.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := n.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if fa.closed != 1 {
		t.Errorf("abi closed %d times, want 1", fa.closed)
	}
	if _, err := n.Verify(context.Background(), "a.pdf"); !errors.Is(err, ErrClosed) {
		t.Errorf("Verify() after Close error = %v, want ErrClosed", err)
	}
}

func TestU_Native_CanceledContext(t *testing.T) {
	fa := &fakeABI{digest: samplePreSign}
	n := newNative(Library{}, fa)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := n.ComputeDigest(ctx, signpdf.DefaultSignRequest("a.pdf", "b.pdf")); !errors.Is(err, context.Canceled) {
		t.Errorf("ComputeDigest() error = %v, want context.Canceled", err)
	}
}
