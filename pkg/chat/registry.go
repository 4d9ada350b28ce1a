package chat

import (
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/akashbera009/kichu-kotha/pkg/chat/proto"
)

// Registry is the single source of truth for who is online. It maps a user
// ID to its one authoritative live session; a new connection for the same
// user supersedes the prior one. All mutations of a session's call flags go
// through ClaimCall/ReleaseCall so the one-active-call-per-user invariant
// is enforced under a single lock.
type Registry struct {
	sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Register creates the session for userID and installs it as the
// authoritative one. It returns the new session and, if the user was
// connected already, the superseded session.
func (r *Registry) Register(userID, name string, sender Sender) (*Session, *Session) {
	sess := newSession(userID, name, sender)

	r.Lock()
	prior := r.sessions[userID]
	r.sessions[userID] = sess
	r.Unlock()

	log.WithFields(log.Fields{
		"user": userID,
		"name": name,
	}).Info("registry added a new session")

	return sess, prior
}

// Lookup returns the live session for userID.
func (r *Registry) Lookup(userID string) (*Session, bool) {
	r.RLock()
	defer r.RUnlock()
	sess, ok := r.sessions[userID]
	return sess, ok
}

// UpdateName refreshes the display name announced with register-for-calls.
func (r *Registry) UpdateName(userID, name string) bool {
	if name == "" {
		return false
	}

	r.Lock()
	defer r.Unlock()
	sess, ok := r.sessions[userID]
	if !ok {
		return false
	}
	sess.name = name
	return true
}

// Name returns the display name of the user's live session.
func (r *Registry) Name(userID string) string {
	r.RLock()
	defer r.RUnlock()
	if sess, ok := r.sessions[userID]; ok {
		return sess.name
	}
	return ""
}

// CallInfo reports whether the user's session is busy and with which call.
func (r *Registry) CallInfo(userID string) (string, bool) {
	r.RLock()
	defer r.RUnlock()
	sess, ok := r.sessions[userID]
	if !ok {
		return "", false
	}
	return sess.callID, sess.inCall
}

// CallOf reports the call the given session was claimed by. Unlike
// CallInfo it reads the session pointer itself, so it stays correct for a
// session that was already superseded in the map.
func (r *Registry) CallOf(sess *Session) (string, bool) {
	r.RLock()
	defer r.RUnlock()
	return sess.callID, sess.inCall
}

// ClaimCall atomically checks that both parties are online and free and
// marks them busy with the given call. The busy check is authoritative
// here, not in the call table, so it stays O(1).
func (r *Registry) ClaimCall(callerID, calleeID, callID string) error {
	r.Lock()
	defer r.Unlock()

	caller, ok := r.sessions[callerID]
	if !ok {
		return NewTargetUnavailableError(callerID, "User not available")
	}
	callee, ok := r.sessions[calleeID]
	if !ok {
		return NewTargetUnavailableError(calleeID, "User not available")
	}
	if callee.inCall {
		return NewTargetUnavailableError(calleeID, "User is busy")
	}
	if caller.inCall {
		return NewTargetUnavailableError(callerID, "User is busy")
	}

	caller.inCall, caller.callID = true, callID
	callee.inCall, callee.callID = true, callID

	return nil
}

// ReleaseCall frees every session claimed by the given call. Sessions that
// went away or were claimed by a newer call are left alone.
func (r *Registry) ReleaseCall(callID string, userIDs ...string) {
	r.Lock()
	defer r.Unlock()

	for _, userID := range userIDs {
		sess, ok := r.sessions[userID]
		if !ok || sess.callID != callID {
			continue
		}
		sess.inCall = false
		sess.callID = ""
	}
}

// Remove deletes the session, but only while it is still the authoritative
// one for its user: the disconnect of a superseded connection must not
// drop its successor.
func (r *Registry) Remove(sess *Session) bool {
	r.Lock()
	defer r.Unlock()

	current, ok := r.sessions[sess.UserID]
	if !ok || current != sess {
		return false
	}

	delete(r.sessions, sess.UserID)
	return true
}

// Snapshot returns the users-list payload, sorted for stable output.
func (r *Registry) Snapshot() []proto.UserEntry {
	r.RLock()
	defer r.RUnlock()

	entries := make([]proto.UserEntry, 0, len(r.sessions))
	for _, sess := range r.sessions {
		entries = append(entries, proto.UserEntry{
			UserID:   sess.UserID,
			Name:     sess.name,
			IsInCall: sess.inCall,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UserID < entries[j].UserID
	})

	return entries
}

// Broadcast fans one event out to every live session.
func (r *Registry) Broadcast(event string, data interface{}) {
	r.RLock()
	targets := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		targets = append(targets, sess)
	}
	r.RUnlock()

	for _, sess := range targets {
		sess.Send(event, data)
	}
}

// BroadcastUsersList pushes the current presence snapshot to everyone.
func (r *Registry) BroadcastUsersList() {
	r.Broadcast(proto.OutUsersList, r.Snapshot())
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()
	return len(r.sessions)
}
