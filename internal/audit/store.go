package audit

import (
	"context"
	"sync"

	"github.com/nyayasetu/platform/internal/shared/types"
)

// Store is append-only persistence for audit entries. There is no
// update or delete operation on purpose.
type Store interface {
	// Append assigns the chain position (sequence, prev_hash, hash)
	// and persists the entry.
	Append(ctx context.Context, entry *Entry) error

	// ListByEntities returns the union of the trails of the given
	// entities, newest first.
	ListByEntities(ctx context.Context, refs []EntityRef) ([]Entry, error)
}

// MemoryStore is an in-memory Store for tests and database-less runs.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  []Entry
	lastHash string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.PrevHash = s.lastHash
	entry.Hash = entry.computeHash()
	entry.Sequence = int64(len(s.entries) + 1)

	s.entries = append(s.entries, *entry)
	s.lastHash = entry.Hash
	return nil
}

func (s *MemoryStore) ListByEntities(ctx context.Context, refs []EntityRef) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[string]map[types.ID]bool, len(refs))
	for _, ref := range refs {
		if want[ref.EntityType] == nil {
			want[ref.EntityType] = make(map[types.ID]bool)
		}
		want[ref.EntityType][ref.EntityID] = true
	}

	var out []Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.EntityID == nil {
			continue
		}
		if want[e.EntityType][*e.EntityID] {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every entry in append order. Test helper.
func (s *MemoryStore) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
