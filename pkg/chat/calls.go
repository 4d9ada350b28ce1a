package chat

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/akashbera009/kichu-kotha/pkg/chat/proto"
)

type CallStatus int

const (
	CallStatusRinging CallStatus = iota
	CallStatusConnected
	CallStatusEnded
	CallStatusRejected
	CallStatusTimeout
	CallStatusDisconnected
)

func (s CallStatus) String() string {
	names := []string{
		"RINGING",
		"CONNECTED",
		"ENDED",
		"REJECTED",
		"TIMEOUT",
		"DISCONNECTED"}

	if s < CallStatusRinging || s > CallStatusDisconnected {
		return "UNKNOWN"
	}

	return names[s]
}

// Terminal reports whether no further transition may leave this status.
func (s CallStatus) Terminal() bool {
	return s != CallStatusRinging && s != CallStatusConnected
}

// CallSession is the signaling record of one call negotiation between two
// users. It exists only while both referenced sessions are marked busy
// with its ID; every terminal transition removes it from the table.
type CallSession struct {
	ID       string
	CallerID string
	CalleeID string
	Status   CallStatus

	StartTime     time.Time
	ConnectedTime time.Time
}

func (cs *CallSession) otherParty(userID string) string {
	if cs.CallerID == userID {
		return cs.CalleeID
	}
	return cs.CallerID
}

func (cs *CallSession) references(userID string) bool {
	return cs.CallerID == userID || cs.CalleeID == userID
}

// CallCoordinator owns the table of in-flight calls and drives the call
// state machine. All transitions run under its lock; registry claims are
// taken inside that critical section (lock order: coordinator before
// registry, never the other way around).
type CallCoordinator struct {
	sync.Mutex
	calls       map[string]*CallSession
	registry    *Registry
	ringTimeout time.Duration
}

func NewCallCoordinator(registry *Registry, ringTimeout time.Duration) *CallCoordinator {
	return &CallCoordinator{
		calls:       make(map[string]*CallSession),
		registry:    registry,
		ringTimeout: ringTimeout,
	}
}

// PlaceCall handles an inbound offer. On success the callee is ringing and
// both parties are marked busy. The returned error is reported to the
// caller as a call-error; no call state is created in that case.
func (c *CallCoordinator) PlaceCall(caller *Session, req *proto.Offer) error {
	if req.To == "" || len(req.Offer) == 0 {
		return NewValidationError("Invalid offer data")
	}

	c.Lock()
	defer c.Unlock()

	callee, ok := c.registry.Lookup(req.To)
	if !ok {
		return NewTargetUnavailableError(req.To, "User not available")
	}

	callID := fmt.Sprintf("%s-%s-%d", caller.UserID, req.To, time.Now().UnixMilli())
	if err := c.registry.ClaimCall(caller.UserID, req.To, callID); err != nil {
		return err
	}

	c.calls[callID] = &CallSession{
		ID:        callID,
		CallerID:  caller.UserID,
		CalleeID:  req.To,
		Status:    CallStatusRinging,
		StartTime: time.Now().UTC(),
	}

	callee.Send(proto.OutOffer, proto.OfferEvent{
		Offer:  req.Offer,
		From:   caller.UserID,
		Name:   c.registry.Name(caller.UserID),
		CallID: callID,
	})

	log.WithFields(log.Fields{
		"call":   callID,
		"caller": caller.UserID,
		"callee": req.To,
	}).Info("call initiated")

	return nil
}

// Answer moves a ringing call to connected and forwards the answer to the
// caller.
func (c *CallCoordinator) Answer(callee *Session, req *proto.Answer) error {
	if len(req.Answer) == 0 {
		return NewValidationError("Invalid answer data")
	}

	c.Lock()
	defer c.Unlock()

	cs, ok := c.calls[req.CallID]
	if !ok {
		return NewProtocolError("no ringing call %s", req.CallID)
	}
	if cs.CalleeID != callee.UserID || cs.Status != CallStatusRinging {
		return NewProtocolError("call %s cannot be answered", cs.ID)
	}

	caller, ok := c.registry.Lookup(cs.CallerID)
	if !ok {
		// The caller vanished between ringing and answer; the disconnect
		// cleanup races us and will reclaim the call.
		return NewTargetUnavailableError(cs.CallerID, "User not available")
	}

	cs.Status = CallStatusConnected
	cs.ConnectedTime = time.Now().UTC()

	caller.Send(proto.OutAnswer, proto.AnswerEvent{
		Answer: req.Answer,
		From:   callee.UserID,
		CallID: cs.ID,
	})

	log.WithFields(log.Fields{
		"call":   cs.ID,
		"callee": callee.UserID,
	}).Info("call answered")

	return nil
}

// Reject terminates a ringing call from the callee side.
func (c *CallCoordinator) Reject(callee *Session, req *proto.RejectCall) error {
	c.Lock()
	defer c.Unlock()

	cs, err := c.findForParty(req.CallID, callee.UserID)
	if err != nil {
		return err
	}
	if cs.Status != CallStatusRinging {
		return NewProtocolError("call %s is not ringing", cs.ID)
	}

	if other, ok := c.registry.Lookup(cs.otherParty(callee.UserID)); ok {
		other.Send(proto.OutCallRejected, proto.CallRejectedEvent{
			From:   callee.UserID,
			CallID: cs.ID,
		})
	}

	c.terminateLocked(cs, CallStatusRejected)
	return nil
}

// End terminates a ringing or connected call from either party.
func (c *CallCoordinator) End(party *Session, req *proto.EndCall) error {
	c.Lock()
	defer c.Unlock()

	cs, err := c.findForParty(req.CallID, party.UserID)
	if err != nil {
		return err
	}

	if other, ok := c.registry.Lookup(cs.otherParty(party.UserID)); ok {
		other.Send(proto.OutCallEnded, proto.CallEndedEvent{
			From:   party.UserID,
			CallID: cs.ID,
			Reason: "ended",
		})
	}

	c.terminateLocked(cs, CallStatusEnded)
	return nil
}

// ClientTimeout handles the caller-side timeout event. Only a ringing call
// can time out; anything else is a protocol violation.
func (c *CallCoordinator) ClientTimeout(party *Session, req *proto.CallTimeout) error {
	c.Lock()
	defer c.Unlock()

	cs, err := c.findForParty(req.CallID, party.UserID)
	if err != nil {
		return err
	}
	if cs.Status != CallStatusRinging {
		return NewProtocolError("call %s is not ringing", cs.ID)
	}

	c.notifyTimeoutLocked(cs)
	c.terminateLocked(cs, CallStatusTimeout)
	return nil
}

// ForwardCandidate relays an ICE candidate to the named peer. Candidates
// race connection teardown, so a missing call or target is not an error.
func (c *CallCoordinator) ForwardCandidate(from *Session, req *proto.ICECandidate) {
	if req.To == "" || len(req.Candidate) == 0 {
		return
	}

	c.Lock()
	defer c.Unlock()

	if !c.partiesShareCallLocked(from.UserID, req.To) {
		return
	}

	if target, ok := c.registry.Lookup(req.To); ok {
		target.Send(proto.OutICECandidate, proto.CandidateEvent{
			Candidate: req.Candidate,
			From:      from.UserID,
		})
	}
}

// ForwardQuality relays a connection-quality report to the peer,
// best-effort like candidates.
func (c *CallCoordinator) ForwardQuality(from *Session, req *proto.ConnectionQuality) {
	if req.To == "" {
		return
	}

	if target, ok := c.registry.Lookup(req.To); ok {
		target.Send(proto.OutPeerQuality, proto.QualityEvent{
			From:    from.UserID,
			Quality: req.Quality,
			Stats:   req.Stats,
		})
	}
}

// HandleDisconnect reclaims the call a vanishing session was part of. The
// remaining party is notified and freed synchronously, so no stale busy
// flag survives the disconnect. The busy state is read from the session
// pointer, not the map: a superseded session's call must still be found
// after its replacement took over the user's map entry.
func (c *CallCoordinator) HandleDisconnect(sess *Session) {
	callID, inCall := c.registry.CallOf(sess)
	if !inCall {
		return
	}

	c.Lock()
	defer c.Unlock()

	cs, ok := c.calls[callID]
	if !ok || !cs.references(sess.UserID) {
		return
	}

	if other, ok := c.registry.Lookup(cs.otherParty(sess.UserID)); ok {
		other.Send(proto.OutCallEnded, proto.CallEndedEvent{
			From:   sess.UserID,
			CallID: cs.ID,
			Reason: "disconnected",
		})
	}

	c.terminateLocked(cs, CallStatusDisconnected)
}

// SweepStale drives the timeout transition for every ringing call older
// than the ring timeout. It returns the number of reclaimed calls.
func (c *CallCoordinator) SweepStale(now time.Time) int {
	c.Lock()
	defer c.Unlock()

	reclaimed := 0
	for _, cs := range c.calls {
		if cs.Status != CallStatusRinging {
			continue
		}
		if now.Sub(cs.StartTime) <= c.ringTimeout {
			continue
		}

		log.WithFields(log.Fields{
			"call": cs.ID,
			"age":  now.Sub(cs.StartTime).String(),
		}).Warn("reclaiming stale ringing call")

		c.notifyTimeoutLocked(cs)
		c.terminateLocked(cs, CallStatusTimeout)
		reclaimed++
	}

	return reclaimed
}

// ActiveCalls returns the number of in-flight calls.
func (c *CallCoordinator) ActiveCalls() int {
	c.Lock()
	defer c.Unlock()
	return len(c.calls)
}

// Lookup returns a copy of the call record.
func (c *CallCoordinator) Lookup(callID string) (CallSession, bool) {
	c.Lock()
	defer c.Unlock()
	cs, ok := c.calls[callID]
	if !ok {
		return CallSession{}, false
	}
	return *cs, true
}

func (c *CallCoordinator) partiesShareCallLocked(a, b string) bool {
	for _, cs := range c.calls {
		if cs.references(a) && cs.references(b) {
			return true
		}
	}
	return false
}

func (c *CallCoordinator) findForParty(callID, userID string) (*CallSession, error) {
	cs, ok := c.calls[callID]
	if !ok {
		return nil, NewProtocolError("no call %s", callID)
	}
	if !cs.references(userID) {
		return nil, NewProtocolError("call %s does not reference user %s", callID, userID)
	}
	return cs, nil
}

func (c *CallCoordinator) notifyTimeoutLocked(cs *CallSession) {
	for _, userID := range []string{cs.CallerID, cs.CalleeID} {
		if sess, ok := c.registry.Lookup(userID); ok {
			sess.Send(proto.OutCallTimeout, proto.CallTimeoutEvent{})
		}
	}
}

// terminateLocked performs the terminal transition: both sessions are
// freed, the call leaves the table and the presence snapshot is pushed so
// clients see the busy flags clear.
func (c *CallCoordinator) terminateLocked(cs *CallSession, status CallStatus) {
	duration := time.Since(cs.StartTime)
	if !cs.ConnectedTime.IsZero() {
		duration = time.Since(cs.ConnectedTime)
	}

	cs.Status = status
	c.registry.ReleaseCall(cs.ID, cs.CallerID, cs.CalleeID)
	delete(c.calls, cs.ID)

	log.WithFields(log.Fields{
		"call":     cs.ID,
		"status":   status.String(),
		"duration": duration.Round(time.Second).String(),
	}).Info("call terminated")

	c.registry.BroadcastUsersList()
}
