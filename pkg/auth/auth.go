package auth

import "fmt"

// Identity is the authenticated principal attached to a connection.
type Identity struct {
	UserID   string
	Username string
}

// Verifier checks a bearer credential and resolves it to an identity.
type Verifier interface {
	Verify(credential string) (*Identity, error)
}

// Error is returned for any credential that cannot be verified. The
// connection gateway rejects the connection without creating state.
type Error struct {
	Reason string
}

func NewError(reason string) error {
	return &Error{Reason: reason}
}

func (e *Error) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func IsAuthError(e error) bool {
	_, ok := e.(*Error)
	return ok
}
