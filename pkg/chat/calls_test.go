package chat

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/akashbera009/kichu-kotha/pkg/chat/proto"
)

type callFixture struct {
	registry    *Registry
	coordinator *CallCoordinator

	alice, bob, carol *Session

	aliceSender, bobSender, carolSender *recordingSender
}

func newCallFixture(t *testing.T) *callFixture {
	t.Helper()

	f := &callFixture{
		registry:    NewRegistry(),
		aliceSender: &recordingSender{},
		bobSender:   &recordingSender{},
		carolSender: &recordingSender{},
	}
	f.coordinator = NewCallCoordinator(f.registry, 45*time.Second)

	f.alice, _ = f.registry.Register("alice", "Alice", f.aliceSender)
	f.bob, _ = f.registry.Register("bob", "Bob", f.bobSender)
	f.carol, _ = f.registry.Register("carol", "Carol", f.carolSender)

	return f
}

func (f *callFixture) placeCall(t *testing.T) string {
	t.Helper()

	err := f.coordinator.PlaceCall(f.alice, &proto.Offer{
		To:    "bob",
		Offer: json.RawMessage(`{"sdp":"v=0"}`),
	})
	if err != nil {
		t.Fatalf("expected call to be placed, got %v", err)
	}

	e, ok := f.bobSender.lastOf(proto.OutOffer)
	if !ok {
		t.Fatalf("expected bob to receive an offer")
	}
	return e.data.(proto.OfferEvent).CallID
}

func TestPlaceCallDeliversOfferToCallee(t *testing.T) {
	f := newCallFixture(t)

	callID := f.placeCall(t)
	if !strings.HasPrefix(callID, "alice-bob-") {
		t.Fatalf("unexpected call id %q", callID)
	}

	e, _ := f.bobSender.lastOf(proto.OutOffer)
	offer := e.data.(proto.OfferEvent)
	if offer.From != "alice" || offer.Name != "Alice" {
		t.Fatalf("unexpected offer event %+v", offer)
	}
	if string(offer.Offer) != `{"sdp":"v=0"}` {
		t.Fatalf("expected offer payload to be relayed untouched, got %s", offer.Offer)
	}

	if f.coordinator.ActiveCalls() != 1 {
		t.Fatalf("expected one active call, got %d", f.coordinator.ActiveCalls())
	}
	cs, ok := f.coordinator.Lookup(callID)
	if !ok || cs.Status != CallStatusRinging {
		t.Fatalf("expected ringing call, got %+v", cs)
	}
}

func TestPlaceCallToOfflineUserFails(t *testing.T) {
	f := newCallFixture(t)

	err := f.coordinator.PlaceCall(f.alice, &proto.Offer{
		To:    "dave",
		Offer: json.RawMessage(`{}`),
	})
	if !IsTargetUnavailableError(err) {
		t.Fatalf("expected target unavailable error, got %v", err)
	}
	if err.Error() != "User not available" {
		t.Fatalf("unexpected reason %q", err.Error())
	}
	if f.coordinator.ActiveCalls() != 0 {
		t.Fatalf("expected no call state after failed placement")
	}
}

func TestPlaceCallToBusyUserFails(t *testing.T) {
	f := newCallFixture(t)
	f.placeCall(t)

	err := f.coordinator.PlaceCall(f.carol, &proto.Offer{
		To:    "bob",
		Offer: json.RawMessage(`{}`),
	})
	if !IsTargetUnavailableError(err) {
		t.Fatalf("expected target unavailable error, got %v", err)
	}
	if err.Error() != "User is busy" {
		t.Fatalf("unexpected reason %q", err.Error())
	}
}

func TestAnswerConnectsCall(t *testing.T) {
	f := newCallFixture(t)
	callID := f.placeCall(t)

	err := f.coordinator.Answer(f.bob, &proto.Answer{
		To:     "alice",
		Answer: json.RawMessage(`{"sdp":"v=0"}`),
		CallID: callID,
	})
	if err != nil {
		t.Fatalf("expected answer to succeed, got %v", err)
	}

	e, ok := f.aliceSender.lastOf(proto.OutAnswer)
	if !ok {
		t.Fatalf("expected alice to receive the answer")
	}
	answer := e.data.(proto.AnswerEvent)
	if answer.From != "bob" || answer.CallID != callID {
		t.Fatalf("unexpected answer event %+v", answer)
	}

	cs, ok := f.coordinator.Lookup(callID)
	if !ok || cs.Status != CallStatusConnected {
		t.Fatalf("expected connected call, got %+v", cs)
	}
	if cs.ConnectedTime.IsZero() {
		t.Fatalf("expected connected time to be set")
	}
}

func TestAnswerUnknownCallFails(t *testing.T) {
	f := newCallFixture(t)

	err := f.coordinator.Answer(f.bob, &proto.Answer{
		To:     "alice",
		Answer: json.RawMessage(`{}`),
		CallID: "nope",
	})
	if !IsProtocolError(err) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestAnswerFromWrongPartyFails(t *testing.T) {
	f := newCallFixture(t)
	callID := f.placeCall(t)

	err := f.coordinator.Answer(f.carol, &proto.Answer{
		To:     "alice",
		Answer: json.RawMessage(`{}`),
		CallID: callID,
	})
	if !IsProtocolError(err) {
		t.Fatalf("expected protocol error, got %v", err)
	}

	cs, ok := f.coordinator.Lookup(callID)
	if !ok || cs.Status != CallStatusRinging {
		t.Fatalf("expected call to stay ringing, got %+v", cs)
	}
}

func TestRejectTerminatesRingingCall(t *testing.T) {
	f := newCallFixture(t)
	callID := f.placeCall(t)

	err := f.coordinator.Reject(f.bob, &proto.RejectCall{To: "alice", CallID: callID})
	if err != nil {
		t.Fatalf("expected reject to succeed, got %v", err)
	}

	e, ok := f.aliceSender.lastOf(proto.OutCallRejected)
	if !ok {
		t.Fatalf("expected alice to receive call-rejected")
	}
	if e.data.(proto.CallRejectedEvent).From != "bob" {
		t.Fatalf("unexpected reject event %+v", e.data)
	}

	f.assertCallGone(t, callID)
}

func TestRejectConnectedCallFails(t *testing.T) {
	f := newCallFixture(t)
	callID := f.placeCall(t)

	if err := f.coordinator.Answer(f.bob, &proto.Answer{
		Answer: json.RawMessage(`{}`), CallID: callID,
	}); err != nil {
		t.Fatalf("expected answer to succeed, got %v", err)
	}

	err := f.coordinator.Reject(f.bob, &proto.RejectCall{CallID: callID})
	if !IsProtocolError(err) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestEndCallNotifiesPeer(t *testing.T) {
	f := newCallFixture(t)
	callID := f.placeCall(t)

	if err := f.coordinator.Answer(f.bob, &proto.Answer{
		Answer: json.RawMessage(`{}`), CallID: callID,
	}); err != nil {
		t.Fatalf("expected answer to succeed, got %v", err)
	}

	// Either party may end, here the callee.
	if err := f.coordinator.End(f.bob, &proto.EndCall{CallID: callID}); err != nil {
		t.Fatalf("expected end to succeed, got %v", err)
	}

	e, ok := f.aliceSender.lastOf(proto.OutCallEnded)
	if !ok {
		t.Fatalf("expected alice to receive call-ended")
	}
	ended := e.data.(proto.CallEndedEvent)
	if ended.From != "bob" || ended.Reason != "ended" {
		t.Fatalf("unexpected call-ended event %+v", ended)
	}

	f.assertCallGone(t, callID)
}

func TestEndRingingCallByCaller(t *testing.T) {
	f := newCallFixture(t)
	callID := f.placeCall(t)

	if err := f.coordinator.End(f.alice, &proto.EndCall{CallID: callID}); err != nil {
		t.Fatalf("expected end to succeed, got %v", err)
	}
	if _, ok := f.bobSender.lastOf(proto.OutCallEnded); !ok {
		t.Fatalf("expected bob to receive call-ended")
	}

	f.assertCallGone(t, callID)
}

func TestClientTimeoutReclaimsRingingCall(t *testing.T) {
	f := newCallFixture(t)
	callID := f.placeCall(t)

	if err := f.coordinator.ClientTimeout(f.alice, &proto.CallTimeout{CallID: callID}); err != nil {
		t.Fatalf("expected timeout to succeed, got %v", err)
	}

	if f.aliceSender.count(proto.OutCallTimeout) != 1 {
		t.Fatalf("expected alice to receive call-timeout")
	}
	if f.bobSender.count(proto.OutCallTimeout) != 1 {
		t.Fatalf("expected bob to receive call-timeout")
	}

	f.assertCallGone(t, callID)
}

func TestHandleDisconnectNotifiesRemainingParty(t *testing.T) {
	f := newCallFixture(t)
	callID := f.placeCall(t)

	f.coordinator.HandleDisconnect(f.alice)

	e, ok := f.bobSender.lastOf(proto.OutCallEnded)
	if !ok {
		t.Fatalf("expected bob to receive call-ended")
	}
	ended := e.data.(proto.CallEndedEvent)
	if ended.From != "alice" || ended.Reason != "disconnected" {
		t.Fatalf("unexpected call-ended event %+v", ended)
	}

	f.assertCallGone(t, callID)
}

func TestHandleDisconnectFindsSupersededSessionCall(t *testing.T) {
	f := newCallFixture(t)
	callID := f.placeCall(t)

	// Alice connects again; the registry map now points at the new session
	// while the old one still holds the call claim.
	replacement := &recordingSender{}
	f.registry.Register("alice", "Alice", replacement)

	f.coordinator.HandleDisconnect(f.alice)

	e, ok := f.bobSender.lastOf(proto.OutCallEnded)
	if !ok {
		t.Fatalf("expected bob to receive call-ended")
	}
	ended := e.data.(proto.CallEndedEvent)
	if ended.From != "alice" || ended.Reason != "disconnected" {
		t.Fatalf("unexpected call-ended event %+v", ended)
	}

	if _, ok := f.coordinator.Lookup(callID); ok {
		t.Fatalf("expected call %s to be removed", callID)
	}
	if _, inCall := f.registry.CallInfo("bob"); inCall {
		t.Fatalf("expected bob to be free")
	}
	if _, inCall := f.registry.CallInfo("alice"); inCall {
		t.Fatalf("expected the replacement session to stay free")
	}
}

func TestHandleDisconnectWithoutCallIsNoop(t *testing.T) {
	f := newCallFixture(t)

	f.coordinator.HandleDisconnect(f.carol)

	if f.coordinator.ActiveCalls() != 0 {
		t.Fatalf("expected no active calls")
	}
}

func TestSweepStaleReclaimsOldRingingCalls(t *testing.T) {
	f := newCallFixture(t)
	callID := f.placeCall(t)

	// A fresh ringing call survives the sweep.
	if n := f.coordinator.SweepStale(time.Now()); n != 0 {
		t.Fatalf("expected nothing reclaimed, got %d", n)
	}

	if n := f.coordinator.SweepStale(time.Now().Add(46 * time.Second)); n != 1 {
		t.Fatalf("expected one call reclaimed, got %d", n)
	}
	if f.bobSender.count(proto.OutCallTimeout) != 1 {
		t.Fatalf("expected bob to receive call-timeout")
	}

	f.assertCallGone(t, callID)
}

func TestSweepStaleIgnoresConnectedCalls(t *testing.T) {
	f := newCallFixture(t)
	callID := f.placeCall(t)

	if err := f.coordinator.Answer(f.bob, &proto.Answer{
		Answer: json.RawMessage(`{}`), CallID: callID,
	}); err != nil {
		t.Fatalf("expected answer to succeed, got %v", err)
	}

	if n := f.coordinator.SweepStale(time.Now().Add(time.Hour)); n != 0 {
		t.Fatalf("expected connected call to survive the sweep, got %d reclaimed", n)
	}
	if f.coordinator.ActiveCalls() != 1 {
		t.Fatalf("expected call to stay active")
	}
}

func TestForwardCandidateRequiresSharedCall(t *testing.T) {
	f := newCallFixture(t)
	f.placeCall(t)

	f.coordinator.ForwardCandidate(f.alice, &proto.ICECandidate{
		To:        "bob",
		Candidate: json.RawMessage(`{"candidate":"c"}`),
	})
	if f.bobSender.count(proto.OutICECandidate) != 1 {
		t.Fatalf("expected bob to receive the candidate")
	}

	// Carol shares no call with bob, her candidate is dropped.
	f.coordinator.ForwardCandidate(f.carol, &proto.ICECandidate{
		To:        "bob",
		Candidate: json.RawMessage(`{"candidate":"c"}`),
	})
	if f.bobSender.count(proto.OutICECandidate) != 1 {
		t.Fatalf("expected carol's candidate to be dropped")
	}
}

func (f *callFixture) assertCallGone(t *testing.T, callID string) {
	t.Helper()

	if _, ok := f.coordinator.Lookup(callID); ok {
		t.Fatalf("expected call %s to be removed", callID)
	}
	if f.coordinator.ActiveCalls() != 0 {
		t.Fatalf("expected no active calls, got %d", f.coordinator.ActiveCalls())
	}
	for _, userID := range []string{"alice", "bob"} {
		if _, inCall := f.registry.CallInfo(userID); inCall {
			t.Fatalf("expected %s to be free", userID)
		}
	}
}
