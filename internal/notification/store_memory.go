package notification

import (
	"context"
	"sort"
	"sync"

	"github.com/nyayasetu/platform/internal/shared/errors"
	"github.com/nyayasetu/platform/internal/shared/types"
)

// MemoryStore is an in-memory Store for tests and database-less runs.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[types.ID]Notification

	// FailFor makes inserts for these recipients fail. Used to
	// exercise partial delivery.
	failFor map[types.ID]error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:   make(map[types.ID]Notification),
		failFor: make(map[types.ID]error),
	}
}

// FailFor makes every insert addressed to userID fail with err.
func (s *MemoryStore) FailFor(userID types.ID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFor[userID] = err
}

func (s *MemoryStore) Insert(ctx context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failFor[n.UserID]; ok {
		return err
	}
	s.items[n.ID] = *n
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID types.ID, filter ListFilter) ([]Notification, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Notification
	for _, n := range s.items {
		if n.UserID != userID {
			continue
		}
		if filter.UnreadOnly && n.IsRead {
			continue
		}
		all = append(all, n)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if filter.Offset > 0 {
		if filter.Offset >= len(all) {
			return nil, total, nil
		}
		all = all[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(all) {
		all = all[:filter.Limit]
	}
	return all, total, nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, id, userID types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok || n.UserID != userID {
		return errors.NotFound("notification", id.String())
	}
	n.IsRead = true
	s.items[id] = n
	return nil
}
