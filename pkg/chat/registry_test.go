package chat

import (
	"sync"
	"testing"
)

type sentEvent struct {
	event string
	data  interface{}
}

// recordingSender implements Sender and captures everything pushed to it.
type recordingSender struct {
	mu       sync.Mutex
	events   []sentEvent
	shutdown bool
}

func (s *recordingSender) Send(event string, data interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sentEvent{event: event, data: data})
	return true
}

func (s *recordingSender) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
}

func (s *recordingSender) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

func (s *recordingSender) count(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.event == event {
			n++
		}
	}
	return n
}

func (s *recordingSender) lastOf(event string) (sentEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].event == event {
			return s.events[i], true
		}
	}
	return sentEvent{}, false
}

func TestRegisterReturnsSupersededSession(t *testing.T) {
	r := NewRegistry()

	first, prior := r.Register("alice", "Alice", &recordingSender{})
	if prior != nil {
		t.Fatalf("expected no prior session, got %v", prior)
	}

	second, prior := r.Register("alice", "Alice", &recordingSender{})
	if prior != first {
		t.Fatalf("expected first session to be superseded")
	}

	sess, ok := r.Lookup("alice")
	if !ok || sess != second {
		t.Fatalf("expected lookup to return the second session")
	}
	if r.Count() != 1 {
		t.Fatalf("expected one live session, got %d", r.Count())
	}
}

func TestClaimCallMarksBothPartiesBusy(t *testing.T) {
	r := NewRegistry()
	r.Register("alice", "Alice", &recordingSender{})
	r.Register("bob", "Bob", &recordingSender{})

	if err := r.ClaimCall("alice", "bob", "call-1"); err != nil {
		t.Fatalf("expected claim to succeed, got %v", err)
	}

	for _, userID := range []string{"alice", "bob"} {
		callID, inCall := r.CallInfo(userID)
		if !inCall || callID != "call-1" {
			t.Fatalf("expected %s to be busy with call-1, got %q/%v", userID, callID, inCall)
		}
	}
}

func TestClaimCallRejectsBusyParty(t *testing.T) {
	r := NewRegistry()
	r.Register("alice", "Alice", &recordingSender{})
	r.Register("bob", "Bob", &recordingSender{})
	r.Register("carol", "Carol", &recordingSender{})

	if err := r.ClaimCall("alice", "bob", "call-1"); err != nil {
		t.Fatalf("expected claim to succeed, got %v", err)
	}

	err := r.ClaimCall("carol", "bob", "call-2")
	if !IsTargetUnavailableError(err) {
		t.Fatalf("expected target unavailable error, got %v", err)
	}
	if err.Error() != "User is busy" {
		t.Fatalf("expected busy reason, got %q", err.Error())
	}

	// Carol must not be left half-claimed.
	if _, inCall := r.CallInfo("carol"); inCall {
		t.Fatalf("expected carol to stay free after rejected claim")
	}
}

func TestClaimCallRejectsOfflineCallee(t *testing.T) {
	r := NewRegistry()
	r.Register("alice", "Alice", &recordingSender{})

	err := r.ClaimCall("alice", "bob", "call-1")
	if !IsTargetUnavailableError(err) {
		t.Fatalf("expected target unavailable error, got %v", err)
	}
	if err.Error() != "User not available" {
		t.Fatalf("expected not available reason, got %q", err.Error())
	}
}

func TestReleaseCallIgnoresNewerClaim(t *testing.T) {
	r := NewRegistry()
	r.Register("alice", "Alice", &recordingSender{})
	r.Register("bob", "Bob", &recordingSender{})
	r.Register("carol", "Carol", &recordingSender{})

	if err := r.ClaimCall("alice", "bob", "call-1"); err != nil {
		t.Fatalf("expected claim to succeed, got %v", err)
	}

	r.ReleaseCall("call-1", "alice", "bob")
	if _, inCall := r.CallInfo("alice"); inCall {
		t.Fatalf("expected alice to be free after release")
	}

	// A release with a stale call ID must not touch a newer claim.
	if err := r.ClaimCall("carol", "bob", "call-2"); err != nil {
		t.Fatalf("expected claim to succeed, got %v", err)
	}
	r.ReleaseCall("call-1", "carol", "bob")
	if _, inCall := r.CallInfo("bob"); !inCall {
		t.Fatalf("expected stale release to leave bob busy")
	}
}

func TestRemoveChecksSessionIdentity(t *testing.T) {
	r := NewRegistry()

	first, _ := r.Register("alice", "Alice", &recordingSender{})
	second, _ := r.Register("alice", "Alice", &recordingSender{})

	if r.Remove(first) {
		t.Fatalf("expected removal of superseded session to be a no-op")
	}
	if sess, ok := r.Lookup("alice"); !ok || sess != second {
		t.Fatalf("expected second session to survive")
	}

	if !r.Remove(second) {
		t.Fatalf("expected removal of authoritative session to succeed")
	}
	if _, ok := r.Lookup("alice"); ok {
		t.Fatalf("expected alice to be gone")
	}
}

func TestSnapshotIsSortedAndCarriesBusyFlag(t *testing.T) {
	r := NewRegistry()
	r.Register("carol", "Carol", &recordingSender{})
	r.Register("alice", "Alice", &recordingSender{})
	r.Register("bob", "Bob", &recordingSender{})

	if err := r.ClaimCall("alice", "bob", "call-1"); err != nil {
		t.Fatalf("expected claim to succeed, got %v", err)
	}

	entries := r.Snapshot()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []string{"alice", "bob", "carol"} {
		if entries[i].UserID != want {
			t.Fatalf("expected entry %d to be %s, got %s", i, want, entries[i].UserID)
		}
	}
	if !entries[0].IsInCall || !entries[1].IsInCall || entries[2].IsInCall {
		t.Fatalf("expected alice and bob busy, carol free: %+v", entries)
	}
}

func TestBroadcastReachesEverySession(t *testing.T) {
	r := NewRegistry()
	senders := []*recordingSender{{}, {}, {}}
	r.Register("alice", "Alice", senders[0])
	r.Register("bob", "Bob", senders[1])
	r.Register("carol", "Carol", senders[2])

	r.BroadcastUsersList()

	for i, s := range senders {
		if s.count("users-list") != 1 {
			t.Fatalf("expected sender %d to receive one users-list, got %d", i, s.count("users-list"))
		}
	}
}
