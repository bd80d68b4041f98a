// Package audit records signing operations in a tamper-evident log.
//
// The audit trail is separate from technical logs. Each event is one JSON
// line whose hash covers its canonical form and the previous event's hash,
// so that any edit or deletion breaks the chain. Timestamps are UTC and
// events never carry key material, passcodes or CMS blobs.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// EventType represents the category of audit event.
type EventType string

const (
	EventPDFSign         EventType = "PDF_SIGN"
	EventPDFVerify       EventType = "PDF_VERIFY"
	EventRevocationFetch EventType = "REVOCATION_FETCH"
)

// Result represents the outcome of an audited operation.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// ResultOf maps a boolean outcome to a Result.
func ResultOf(ok bool) Result {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}

// Actor represents who performed the action.
type Actor struct {
	Type string `json:"type"` // "user" or "service"
	ID   string `json:"id"`
	Host string `json:"host,omitempty"`
}

// Object represents the document acted upon.
type Object struct {
	Type   string `json:"type"` // "document" or "revocation"
	Path   string `json:"path,omitempty"`
	Output string `json:"output,omitempty"`
}

// Context provides details about the operation.
type Context struct {
	AttemptID     string `json:"attempt_id,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
	Signer        string `json:"signer,omitempty"` // remote, local or pkcs11
	SignatureType string `json:"signature_type,omitempty"`
	Subfilter     string `json:"subfilter,omitempty"`
	Visibility    string `json:"visibility,omitempty"`
	DSS           bool   `json:"dss,omitempty"`
	ResponseCode  int    `json:"response_code"`
	Status        string `json:"status,omitempty"`
	OCSPCount     int    `json:"ocsp_count,omitempty"`
	CRLCount      int    `json:"crl_count,omitempty"`
}

// Event represents a single audit log entry.
type Event struct {
	EventType EventType `json:"event_type"`
	Timestamp string    `json:"timestamp"` // RFC3339 UTC
	Actor     Actor     `json:"actor"`
	Object    Object    `json:"object"`
	Context   Context   `json:"context"`
	Result    Result    `json:"result"`
	HashPrev  string    `json:"hash_prev"`
	Hash      string    `json:"hash"`
}

// NewEvent creates an event stamped now, attributed to the OS user.
func NewEvent(eventType EventType, result Result) *Event {
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME") // Windows
	}
	if username == "" {
		username = "unknown"
	}

	return &Event{
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Actor:     Actor{Type: "user", ID: username, Host: hostname},
		Result:    result,
	}
}

// WithObject sets the object field.
func (e *Event) WithObject(obj Object) *Event {
	e.Object = obj
	return e
}

// WithContext sets the context field.
func (e *Event) WithContext(ctx Context) *Event {
	e.Context = ctx
	return e
}

// WithActor overrides the default actor.
func (e *Event) WithActor(actor Actor) *Event {
	e.Actor = actor
	return e
}

// Validate checks that required fields are present.
func (e *Event) Validate() error {
	switch {
	case e.EventType == "":
		return fmt.Errorf("event_type is required")
	case e.Timestamp == "":
		return fmt.Errorf("timestamp is required")
	case e.Actor.Type == "" || e.Actor.ID == "":
		return fmt.Errorf("actor type and id are required")
	case e.Result == "":
		return fmt.Errorf("result is required")
	}
	return nil
}

// CanonicalJSON returns the event without its own hash, for hashing.
func (e *Event) CanonicalJSON() ([]byte, error) {
	type unhashed struct {
		EventType EventType `json:"event_type"`
		Timestamp string    `json:"timestamp"`
		Actor     Actor     `json:"actor"`
		Object    Object    `json:"object"`
		Context   Context   `json:"context"`
		Result    Result    `json:"result"`
		HashPrev  string    `json:"hash_prev"`
	}
	return json.Marshal(unhashed{
		EventType: e.EventType,
		Timestamp: e.Timestamp,
		Actor:     e.Actor,
		Object:    e.Object,
		Context:   e.Context,
		Result:    e.Result,
		HashPrev:  e.HashPrev,
	})
}
