package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/akashbera009/kichu-kotha/pkg/storage"
)

// store contains all PostgreSQL based sub-stores for managing the models
type store struct {
	users    *userStore
	messages *messageStore
}

// NewStore creates a new PostgreSQL based Storage interface
func NewStore(db *sqlx.DB) storage.Interface {
	return &store{
		users:    newUserStore(db),
		messages: newMessageStore(db),
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
