package signpdf

import (
	"errors"
	"fmt"
)

// Phase names a step of the sign workflow.
type Phase string

const (
	PhaseValidate   Phase = "validate"
	PhaseDigest     Phase = "digest"
	PhaseSign       Phase = "sign"
	PhaseRevocation Phase = "revocation"
	PhaseEmbed      Phase = "embed"
)

// Error is a failed sign attempt with structured context.
// It supports errors.Is() and errors.As().
type Error struct {
	Phase Phase
	Code  ResponseCode
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("signpdf %s [code %d]: %v", e.Phase, e.Code, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error { return e.Err }

func newError(phase Phase, code ResponseCode, err error) *Error {
	return &Error{Phase: phase, Code: code, Err: err}
}

// Sentinel errors for sign and verify operations.
var (
	// ErrInvalidInput indicates a malformed SignRequest.
	ErrInvalidInput = errors.New("invalid input parameters")

	// ErrEmptyDigest indicates the engine returned no digest.
	ErrEmptyDigest = errors.New("empty digest result")

	// ErrDigestFailed indicates the engine reported a non-zero digest code.
	ErrDigestFailed = errors.New("digest computation failed")

	// ErrEmptySignature indicates the external signer returned nothing.
	ErrEmptySignature = errors.New("external signer returned an empty signature")

	// ErrEmbedFailed indicates the engine could not embed the signature.
	ErrEmbedFailed = errors.New("embed failed")
)
