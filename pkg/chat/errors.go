package chat

import "fmt"

// ValidationError rejects a malformed event payload. It is reported only
// to the originating connection.
type ValidationError struct {
	Reason string
}

func NewValidationError(reason string) error {
	return &ValidationError{Reason: reason}
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func IsValidationError(e error) bool {
	_, ok := e.(*ValidationError)
	return ok
}

// TargetUnavailableError reports that the addressed user has no live
// session or is busy. It never crashes the coordinator; the caller gets a
// call-error or the relay falls back to a push notification.
type TargetUnavailableError struct {
	UserID string
	Reason string
}

func NewTargetUnavailableError(userID, reason string) error {
	return &TargetUnavailableError{UserID: userID, Reason: reason}
}

func (e *TargetUnavailableError) Error() string {
	return e.Reason
}

func IsTargetUnavailableError(e error) bool {
	_, ok := e.(*TargetUnavailableError)
	return ok
}

// ProtocolError rejects a signaling event that has no labeled transition
// from the call's current state. The call state stays untouched.
type ProtocolError struct {
	Reason string
}

func NewProtocolError(format string, args ...interface{}) error {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}

func (e *ProtocolError) Error() string {
	return e.Reason
}

func IsProtocolError(e error) bool {
	_, ok := e.(*ProtocolError)
	return ok
}
