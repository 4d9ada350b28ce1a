package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akashbera009/kichu-kotha/pkg/model"
	"github.com/akashbera009/kichu-kotha/pkg/storage"
)

type messageStore struct {
	store map[string]model.Message
	sync.RWMutex
}

func newMessageStore() *messageStore {
	return &messageStore{
		store: make(map[string]model.Message),
	}
}

func (s *messageStore) FindByID(id string) (*model.Message, error) {
	s.RLock()
	defer s.RUnlock()
	if m, ok := s.store[id]; ok {
		return &m, nil
	}

	return nil, storage.ErrNotFound
}

func (s *messageStore) Create(m *model.Message) error {
	s.Lock()
	defer s.Unlock()

	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt

	s.store[m.ID] = *m

	return nil
}

func (s *messageStore) UpdateStatus(id string, status model.MessageStatus) (*model.Message, error) {
	s.Lock()
	defer s.Unlock()

	m, ok := s.store[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	m.Status = status
	m.UpdatedAt = time.Now().UTC()
	s.store[id] = m

	return &m, nil
}

func (s *messageStore) FetchConversation(userID, peerID string, limit int, before time.Time) ([]model.Message, bool, error) {
	s.RLock()
	defer s.RUnlock()

	all := make([]model.Message, 0)
	for _, m := range s.store {
		if !between(m, userID, peerID) {
			continue
		}
		if !before.IsZero() && !m.CreatedAt.Before(before) {
			continue
		}
		all = append(all, m)
	}

	// Newest first for the cut, then reversed to oldest first.
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	hasMore := false
	if limit > 0 && len(all) > limit {
		all = all[:limit]
		hasMore = true
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	return all, hasMore, nil
}

func between(m model.Message, userID, peerID string) bool {
	return (m.SenderID == userID && m.ReceiverID == peerID) ||
		(m.SenderID == peerID && m.ReceiverID == userID)
}
