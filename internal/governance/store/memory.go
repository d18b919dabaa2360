package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"filegov/internal/governance/models"
	id "filegov/pkg/domain"
	"filegov/pkg/platform/sentinel"
)

// InMemoryStore keeps requests in a map. Transition is a compare-and-swap
// on status under the write lock.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.RequestID]*models.Request
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{requests: make(map[id.RequestID]*models.Request)}
}

func (s *InMemoryStore) Create(_ context.Context, req *models.Request) error {
	if req == nil {
		return fmt.Errorf("request is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.requests[req.ID] = req.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, requestID id.RequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return req.Clone(), nil
}

// Transition stores req only if the stored copy is still PENDING.
func (s *InMemoryStore) Transition(_ context.Context, req *models.Request) error {
	if req == nil {
		return fmt.Errorf("request is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.requests[req.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Status != models.StatusPending {
		return fmt.Errorf("request %s is %s: %w", req.ID, current.Status, sentinel.ErrConflict)
	}
	s.requests[req.ID] = req.Clone()
	return nil
}

func (s *InMemoryStore) ListBySender(_ context.Context, senderHandle string) ([]*models.Request, error) {
	return s.list(func(r *models.Request) bool { return r.SenderHandle == senderHandle }), nil
}

func (s *InMemoryStore) ListByStatus(_ context.Context, statuses ...models.Status) ([]*models.Request, error) {
	return s.list(func(r *models.Request) bool { return slices.Contains(statuses, r.Status) }), nil
}

// list returns matches newest first.
func (s *InMemoryStore) list(match func(*models.Request) bool) []*models.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Request, 0)
	for _, r := range s.requests {
		if match(r) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
