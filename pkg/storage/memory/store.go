package memory

import "github.com/akashbera009/kichu-kotha/pkg/storage"

// Store contains all memory-based sub-stores for managing the persistent models
type store struct {
	users    *userStore
	messages *messageStore
}

// NewStore creates a new memory-based Storage interface
func NewStore() storage.Interface {
	return &store{
		users:    newUserStore(),
		messages: newMessageStore(),
	}
}

// Users returns a sub-store for managing the User model
func (s *store) Users() storage.UserStore {
	return s.users
}

// Messages returns a sub-store for managing the Message model
func (s *store) Messages() storage.MessageStore {
	return s.messages
}
