package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akashbera009/kichu-kotha/pkg/model"
	"github.com/akashbera009/kichu-kotha/pkg/storage"
)

type userStore struct {
	store map[string]model.User
	sync.RWMutex
}

func newUserStore() *userStore {
	return &userStore{
		store: make(map[string]model.User),
	}
}

func (s *userStore) FindByID(id string) (*model.User, error) {
	s.RLock()
	defer s.RUnlock()
	if m, ok := s.store[id]; ok {
		return copyUser(m), nil
	}

	return nil, storage.ErrNotFound
}

func (s *userStore) FindByUsername(username string) (*model.User, error) {
	s.RLock()
	defer s.RUnlock()

	for _, m := range s.store {
		if m.Username == username {
			return copyUser(m), nil
		}
	}

	return nil, storage.ErrNotFound
}

func (s *userStore) Search(username, excludeID string) ([]model.User, error) {
	s.RLock()
	defer s.RUnlock()

	models := make([]model.User, 0)
	needle := strings.ToLower(username)
	for _, m := range s.store {
		if m.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(m.Username), needle) {
			models = append(models, *copyUser(m))
		}
	}

	return models, nil
}

func (s *userStore) Create(m *model.User) error {
	s.Lock()
	defer s.Unlock()

	for _, existing := range s.store {
		if existing.Username == m.Username {
			return storage.ErrAlreadyExists
		}
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = time.Now().Round(time.Second).UTC()
	m.UpdatedAt = time.Now().Round(time.Second).UTC()

	s.store[m.ID] = *m

	return nil
}

func (s *userStore) SetOnline(id string, online bool, lastSeen time.Time) error {
	s.Lock()
	defer s.Unlock()

	m, ok := s.store[id]
	if !ok {
		return storage.ErrNotFound
	}

	m.IsOnline = online
	m.LastSeen = lastSeen
	m.UpdatedAt = time.Now().Round(time.Second).UTC()
	s.store[id] = m

	return nil
}

func (s *userStore) AddContact(id, contactID string) error {
	s.Lock()
	defer s.Unlock()

	m, ok := s.store[id]
	if !ok {
		return storage.ErrNotFound
	}
	if _, ok := s.store[contactID]; !ok {
		return storage.ErrNotFound
	}

	for _, c := range m.Contacts {
		if c == contactID {
			return storage.ErrAlreadyExists
		}
	}

	m.Contacts = append(append([]string(nil), m.Contacts...), contactID)
	m.UpdatedAt = time.Now().Round(time.Second).UTC()
	s.store[id] = m

	return nil
}

func (s *userStore) Contacts(id string) ([]model.User, error) {
	s.RLock()
	defer s.RUnlock()

	m, ok := s.store[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	models := make([]model.User, 0, len(m.Contacts))
	for _, contactID := range m.Contacts {
		if c, ok := s.store[contactID]; ok {
			models = append(models, *copyUser(c))
		}
	}

	return models, nil
}

func (s *userStore) AddPushToken(id, token string) error {
	s.Lock()
	defer s.Unlock()

	m, ok := s.store[id]
	if !ok {
		return storage.ErrNotFound
	}

	for _, t := range m.PushTokens {
		if t == token {
			return nil
		}
	}

	m.PushTokens = append(append([]string(nil), m.PushTokens...), token)
	m.UpdatedAt = time.Now().Round(time.Second).UTC()
	s.store[id] = m

	return nil
}

func copyUser(m model.User) *model.User {
	m.Contacts = append([]string(nil), m.Contacts...)
	m.PushTokens = append([]string(nil), m.PushTokens...)
	return &m
}
