package storage

import (
	"time"

	"github.com/akashbera009/kichu-kotha/pkg/model"
)

// Interface is implemented by the storage
type Interface interface {
	Users() UserStore
	Messages() MessageStore
}

// UserStore is responsible for managing the User model
type UserStore interface {
	FindByID(id string) (*model.User, error)
	FindByUsername(username string) (*model.User, error)
	Search(username, excludeID string) ([]model.User, error)
	Create(m *model.User) error
	SetOnline(id string, online bool, lastSeen time.Time) error
	AddContact(id, contactID string) error
	Contacts(id string) ([]model.User, error)
	AddPushToken(id, token string) error
}

// MessageStore is responsible for managing the Message model
type MessageStore interface {
	FindByID(id string) (*model.Message, error)
	Create(m *model.Message) error
	UpdateStatus(id string, status model.MessageStatus) (*model.Message, error)
	// FetchConversation returns up to limit messages between the two users,
	// oldest first. A non-zero before restricts the result to messages
	// created strictly earlier. The second return value reports whether
	// older messages remain.
	FetchConversation(userID, peerID string, limit int, before time.Time) ([]model.Message, bool, error)
}
