package audit

// Writer persists audit events.
//
// Write must validate the event, set HashPrev and Hash, persist it and
// sync before returning. A failed write fails the audited operation.
type Writer interface {
	Write(event *Event) error
	Close() error

	// LastHash is GenesisHash before the first event.
	LastHash() string
}

// NopWriter discards all events. Used when auditing is disabled.
type NopWriter struct{}

var _ Writer = NopWriter{}

func (NopWriter) Write(*Event) error { return nil }
func (NopWriter) Close() error       { return nil }
func (NopWriter) LastHash() string   { return GenesisHash }
