package audit

import (
	"fmt"
	"sync"
)

var (
	globalWriter Writer = NopWriter{}
	globalMu     sync.RWMutex
	enabled      bool
)

// Init installs w as the process-wide audit writer. A nil writer
// disables auditing.
func Init(w Writer) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if w == nil {
		globalWriter, enabled = NopWriter{}, false
		return
	}
	globalWriter, enabled = w, true
}

// InitFile installs a FileWriter on path. An empty path disables auditing.
func InitFile(path string) error {
	if path == "" {
		Init(nil)
		return nil
	}
	w, err := NewFileWriter(path)
	if err != nil {
		return err
	}
	Init(w)
	return nil
}

// Close closes the process-wide writer and disables auditing.
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	err := globalWriter.Close()
	globalWriter, enabled = NopWriter{}, false
	return err
}

// Enabled reports whether auditing is active.
func Enabled() bool {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return enabled
}

// Log writes event to the process-wide writer. Callers must treat an
// error as a failure of the audited operation.
func Log(event *Event) error {
	globalMu.RLock()
	w := globalWriter
	globalMu.RUnlock()

	if err := w.Write(event); err != nil {
		return fmt.Errorf("audit log failed: %w", err)
	}
	return nil
}

// SignRecord describes one sign attempt.
type SignRecord struct {
	Actor         *Actor
	Input         string
	Output        string
	AttemptID     string
	RequestID     string
	Signer        string
	SignatureType string
	Subfilter     string
	Visibility    string
	DSS           bool
	ResponseCode  int
	Status        string
}

// LogPDFSigned records a sign attempt. Code 0 is a success.
func LogPDFSigned(r SignRecord) error {
	event := NewEvent(EventPDFSign, ResultOf(r.ResponseCode == 0)).
		WithObject(Object{Type: "document", Path: r.Input, Output: r.Output}).
		WithContext(Context{
			AttemptID:     r.AttemptID,
			RequestID:     r.RequestID,
			Signer:        r.Signer,
			SignatureType: r.SignatureType,
			Subfilter:     r.Subfilter,
			Visibility:    r.Visibility,
			DSS:           r.DSS,
			ResponseCode:  r.ResponseCode,
			Status:        r.Status,
		})
	if r.Actor != nil {
		event.WithActor(*r.Actor)
	}
	return Log(event)
}

// LogPDFVerified records a verification. found is false when the engine
// produced no report.
func LogPDFVerified(actor *Actor, path, requestID string, found bool) error {
	event := NewEvent(EventPDFVerify, ResultOf(found)).
		WithObject(Object{Type: "document", Path: path}).
		WithContext(Context{RequestID: requestID})
	if actor != nil {
		event.WithActor(*actor)
	}
	return Log(event)
}

// LogRevocationFetched records a standalone evidence collection.
func LogRevocationFetched(actor *Actor, requestID string, requested, ocsp, crl int) error {
	event := NewEvent(EventRevocationFetch, ResultOf(ocsp+crl == requested)).
		WithObject(Object{Type: "revocation"}).
		WithContext(Context{
			RequestID: requestID,
			OCSPCount: ocsp,
			CRLCount:  crl,
			Status:    fmt.Sprintf("%d of %d items collected", ocsp+crl, requested),
		})
	if actor != nil {
		event.WithActor(*actor)
	}
	return Log(event)
}
