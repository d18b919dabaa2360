package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"filegov/internal/notification/models"
	id "filegov/pkg/domain"
	"filegov/pkg/platform/sentinel"
)

type storedEntry struct {
	entry *models.Entry
	seq   uint64
}

// InMemoryStore keeps notifications in a map. seq preserves insertion order
// among entries created in the same instant.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.NotificationID]*storedEntry
	nextSeq uint64
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.NotificationID]*storedEntry)}
}

// CreateBatch stores every entry or none of them.
func (s *InMemoryStore) CreateBatch(_ context.Context, entries []*models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[id.NotificationID]struct{}, len(entries))
	for _, e := range entries {
		if e == nil {
			return fmt.Errorf("notification entry is required")
		}
		if _, ok := s.entries[e.ID]; ok {
			return sentinel.ErrAlreadyUsed
		}
		if _, ok := seen[e.ID]; ok {
			return sentinel.ErrAlreadyUsed
		}
		seen[e.ID] = struct{}{}
	}
	for _, e := range entries {
		s.nextSeq++
		s.entries[e.ID] = &storedEntry{entry: e.Clone(), seq: s.nextSeq}
	}
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, notificationID id.NotificationID) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.entries[notificationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return stored.entry.Clone(), nil
}

// ListByRecipient returns the recipient's entries newest first.
func (s *InMemoryStore) ListByRecipient(_ context.Context, recipientID id.ActorID, filter models.ListFilter) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]*storedEntry, 0)
	for _, stored := range s.entries {
		if stored.entry.RecipientID == recipientID && filter.Matches(stored.entry) {
			matched = append(matched, stored)
		}
	}
	slices.SortFunc(matched, func(a, b *storedEntry) int {
		if c := b.entry.CreatedAt.Compare(a.entry.CreatedAt); c != 0 {
			return c
		}
		return compareSeq(b.seq, a.seq)
	})
	return unwrap(matched), nil
}

// MarkRead sets ReadAt on first call only and returns the stored entry.
func (s *InMemoryStore) MarkRead(_ context.Context, notificationID id.NotificationID, at time.Time) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.entries[notificationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	stored.entry.MarkRead(at)
	return stored.entry.Clone(), nil
}

func (s *InMemoryStore) CountUnread(_ context.Context, recipientID id.ActorID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, stored := range s.entries {
		if stored.entry.RecipientID == recipientID && !stored.entry.IsRead {
			n++
		}
	}
	return n, nil
}

// FetchUndispatched returns up to limit entries not yet handed to a
// transport, oldest first.
func (s *InMemoryStore) FetchUndispatched(_ context.Context, limit int) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pending := make([]*storedEntry, 0)
	for _, stored := range s.entries {
		if stored.entry.DispatchedAt == nil {
			pending = append(pending, stored)
		}
	}
	slices.SortFunc(pending, func(a, b *storedEntry) int {
		return compareSeq(a.seq, b.seq)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return unwrap(pending), nil
}

func (s *InMemoryStore) MarkDispatched(_ context.Context, notificationID id.NotificationID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.entries[notificationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.entry.DispatchedAt == nil {
		stored.entry.DispatchedAt = &at
	}
	return nil
}

func (s *InMemoryStore) CountUndispatched(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, stored := range s.entries {
		if stored.entry.DispatchedAt == nil {
			n++
		}
	}
	return n, nil
}

func compareSeq(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func unwrap(stored []*storedEntry) []*models.Entry {
	out := make([]*models.Entry, 0, len(stored))
	for _, st := range stored {
		out = append(out, st.entry.Clone())
	}
	return out
}
