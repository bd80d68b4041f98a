package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// =============================================================================
// Event Tests
// =============================================================================

func TestU_NewEvent_Creation(t *testing.T) {
	event := NewEvent(EventPDFSign, ResultSuccess)

	if event.EventType != EventPDFSign {
		t.Errorf("EventType = %s, want %s", event.EventType, EventPDFSign)
	}
	if event.Timestamp == "" {
		t.Error("Timestamp should not be empty")
	}
	if event.Actor.Type != "user" || event.Actor.ID == "" {
		t.Errorf("Actor = %+v", event.Actor)
	}
}

func TestU_Event_Validate(t *testing.T) {
	tests := []struct {
		name    string
		event   *Event
		wantErr bool
	}{
		{"[Unit] Validate: valid event", NewEvent(EventPDFVerify, ResultSuccess), false},
		{"[Unit] Validate: missing event_type", &Event{
			Timestamp: "2026-01-15T10:00:00Z",
			Actor:     Actor{Type: "user", ID: "admin"},
			Result:    ResultSuccess,
		}, true},
		{"[Unit] Validate: missing actor", &Event{
			EventType: EventPDFSign,
			Timestamp: "2026-01-15T10:00:00Z",
			Result:    ResultSuccess,
		}, true},
		{"[Unit] Validate: missing result", &Event{
			EventType: EventPDFSign,
			Timestamp: "2026-01-15T10:00:00Z",
			Actor:     Actor{Type: "user", ID: "admin"},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.event.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestU_Event_CanonicalJSON_ExcludesHash(t *testing.T) {
	event := NewEvent(EventPDFSign, ResultSuccess)
	event.HashPrev = GenesisHash
	event.Hash = "sha256:whatever"

	canonical, err := event.CanonicalJSON()
	if err != nil {
		t.Fatalf("CanonicalJSON() error = %v", err)
	}
	if strings.Contains(string(canonical), `"hash":`) {
		t.Errorf("canonical form contains hash: %s", canonical)
	}
	if !strings.Contains(string(canonical), `"hash_prev":"sha256:genesis"`) {
		t.Errorf("canonical form lacks hash_prev: %s", canonical)
	}
}

// =============================================================================
// FileWriter Tests
// =============================================================================

func TestU_FileWriter_ChainAndVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "audit.jsonl")

	w, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}
	if w.LastHash() != GenesisHash {
		t.Errorf("LastHash() = %s, want genesis", w.LastHash())
	}

	first := NewEvent(EventPDFSign, ResultSuccess)
	if err := w.Write(first); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	second := NewEvent(EventPDFVerify, ResultFailure)
	if err := w.Write(second); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if first.HashPrev != GenesisHash || second.HashPrev != first.Hash {
		t.Errorf("chain not linked: %s -> %s", first.Hash, second.HashPrev)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Write(NewEvent(EventPDFSign, ResultSuccess)); err == nil {
		t.Error("Write() after Close() should fail")
	}

	n, err := VerifyChain(path)
	if err != nil || n != 2 {
		t.Errorf("VerifyChain() = %d, %v, want 2, nil", n, err)
	}
}

func TestU_FileWriter_ResumesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	w1, err := NewFileWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = w1.Write(NewEvent(EventPDFSign, ResultSuccess))
	last := w1.LastHash()
	_ = w1.Close()

	w2, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter() reopen error = %v", err)
	}
	defer func() { _ = w2.Close() }()
	if w2.LastHash() != last {
		t.Errorf("LastHash() = %s, want %s", w2.LastHash(), last)
	}
	_ = w2.Write(NewEvent(EventRevocationFetch, ResultSuccess))

	if n, err := VerifyChain(path); err != nil || n != 2 {
		t.Errorf("VerifyChain() = %d, %v", n, err)
	}
}

func TestU_FileWriter_RejectsInvalidEvent(t *testing.T) {
	w, err := NewFileWriter(filepath.Join(t.TempDir(), "audit.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = w.Close() }()

	if err := w.Write(&Event{}); err == nil {
		t.Error("Write() should reject an empty event")
	}
	if w.LastHash() != GenesisHash {
		t.Error("rejected event must not advance the chain")
	}
}

func TestU_NewFileWriter_CorruptTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	if err := os.WriteFile(path, []byte("not json\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileWriter(path); err == nil {
		t.Error("NewFileWriter() should fail on a corrupt log")
	}
}

// =============================================================================
// VerifyChain Tests
// =============================================================================

func TestU_VerifyChain_DetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	w, err := NewFileWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		_ = w.Write(NewEvent(EventPDFSign, ResultSuccess).WithObject(Object{Type: "document", Path: "in.pdf"}))
	}
	_ = w.Close()

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")

	tests := []struct {
		name      string
		tamper    func([]string) []string
		wantValid int
		wantErr   string
	}{
		{
			name: "[Unit] VerifyChain: edited field",
			tamper: func(l []string) []string {
				out := append([]string(nil), l...)
				out[1] = strings.Replace(out[1], "in.pdf", "other.pdf", 1)
				return out
			},
			wantValid: 1,
			wantErr:   "hash mismatch",
		},
		{
			name: "[Unit] VerifyChain: deleted event",
			tamper: func(l []string) []string {
				return []string{l[0], l[2]}
			},
			wantValid: 1,
			wantErr:   "hash chain broken",
		},
		{
			name: "[Unit] VerifyChain: garbage line",
			tamper: func(l []string) []string {
				return []string{l[0], "{", l[1]}
			},
			wantValid: 1,
			wantErr:   "invalid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "tampered.jsonl")
			if err := os.WriteFile(p, []byte(strings.Join(tt.tamper(lines), "\n")+"\n"), 0600); err != nil {
				t.Fatal(err)
			}
			n, err := VerifyChain(p)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("VerifyChain() error = %v, want %q", err, tt.wantErr)
			}
			if n != tt.wantValid {
				t.Errorf("VerifyChain() valid = %d, want %d", n, tt.wantValid)
			}
		})
	}
}

func TestU_VerifyChain_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}
	if n, err := VerifyChain(path); err != nil || n != 0 {
		t.Errorf("VerifyChain() = %d, %v", n, err)
	}
}

// =============================================================================
// Global Logger Tests
// =============================================================================

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var events []Event
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("bad line %q: %v", line, err)
		}
		events = append(events, e)
	}
	return events
}

func TestU_Global_LogHelpers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	if err := InitFile(path); err != nil {
		t.Fatalf("InitFile() error = %v", err)
	}
	t.Cleanup(func() { _ = Close() })

	if !Enabled() {
		t.Fatal("Enabled() = false after InitFile")
	}

	svc := &Actor{Type: "service", ID: "signpdfkit-api"}
	if err := LogPDFSigned(SignRecord{
		Actor:        svc,
		Input:        "in.pdf",
		Output:       "out.pdf",
		AttemptID:    "a-1",
		Signer:       "remote",
		DSS:          true,
		ResponseCode: 4,
		Status:       "Failed when process PDF",
	}); err != nil {
		t.Fatalf("LogPDFSigned() error = %v", err)
	}
	if err := LogPDFVerified(nil, "out.pdf", "r-1", true); err != nil {
		t.Fatalf("LogPDFVerified() error = %v", err)
	}
	if err := LogRevocationFetched(svc, "r-2", 3, 1, 1); err != nil {
		t.Fatalf("LogRevocationFetched() error = %v", err)
	}

	events := readEvents(t, path)
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Result != ResultFailure || events[0].Actor.ID != "signpdfkit-api" || events[0].Context.ResponseCode != 4 {
		t.Errorf("sign event = %+v", events[0])
	}
	if events[1].EventType != EventPDFVerify || events[1].Result != ResultSuccess {
		t.Errorf("verify event = %+v", events[1])
	}
	if events[2].Result != ResultFailure || events[2].Context.Status != "2 of 3 items collected" {
		t.Errorf("revocation event = %+v", events[2])
	}
	if n, err := VerifyChain(path); err != nil || n != 3 {
		t.Errorf("VerifyChain() = %d, %v", n, err)
	}
}

func TestU_Global_DisabledIsNoop(t *testing.T) {
	Init(nil)
	if Enabled() {
		t.Error("Enabled() = true after Init(nil)")
	}
	if err := LogPDFVerified(nil, "x.pdf", "", false); err != nil {
		t.Errorf("Log() with auditing disabled error = %v", err)
	}
	if err := InitFile(""); err != nil || Enabled() {
		t.Errorf("InitFile(\"\") = %v, enabled %v", err, Enabled())
	}
}
