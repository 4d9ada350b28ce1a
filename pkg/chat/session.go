package chat

import "time"

// Sender delivers outbound events to one live connection. Send must never
// block; it reports false when the event had to be dropped. Shutdown closes
// the underlying connection.
type Sender interface {
	Send(event string, data interface{}) bool
	Shutdown()
}

// Session is the live binding between a connection and an authenticated
// user. It is owned by the Registry: name, inCall and callID are read and
// written only under the registry lock.
type Session struct {
	UserID      string
	ConnectedAt time.Time

	name   string
	inCall bool
	callID string

	sender Sender
}

func newSession(userID, name string, sender Sender) *Session {
	return &Session{
		UserID:      userID,
		ConnectedAt: time.Now().Round(time.Second).UTC(),
		name:        name,
		sender:      sender,
	}
}

// Send forwards one event to the session's connection.
func (s *Session) Send(event string, data interface{}) bool {
	return s.sender.Send(event, data)
}

// Shutdown closes the session's connection.
func (s *Session) Shutdown() {
	s.sender.Shutdown()
}
