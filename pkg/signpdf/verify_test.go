package signpdf

import (
	"context"
	"errors"
	"testing"
)

func TestU_Verifier_Verify(t *testing.T) {
	engine := newFakeEngine()
	engine.report = `{"signatures":[]}`

	report, ok, err := NewVerifier(engine, nil).Verify(context.Background(), "signed.pdf")
	if err != nil || !ok || report != engine.report {
		t.Errorf("Verify() = %q, %v, %v", report, ok, err)
	}
}

func TestU_Verifier_Verify_EmptyIsAbsent(t *testing.T) {
	engine := newFakeEngine()

	report, ok, err := NewVerifier(engine, nil).Verify(context.Background(), "signed.pdf")
	if err != nil || ok || report != "" {
		t.Errorf("Verify() = %q, %v, %v, want absent", report, ok, err)
	}
}

func TestU_Verifier_Verify_Error(t *testing.T) {
	engine := newFakeEngine()
	engine.reportErr = errors.New("engine not loaded")

	if _, _, err := NewVerifier(engine, nil).Verify(context.Background(), "signed.pdf"); err == nil {
		t.Error("Verify() should propagate engine errors")
	}
}
