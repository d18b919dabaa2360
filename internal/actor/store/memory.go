package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"filegov/internal/actor/models"
	id "filegov/pkg/domain"
	"filegov/pkg/platform/sentinel"
)

// InMemoryStore is the actor directory used in tests and demo mode.
type InMemoryStore struct {
	mu          sync.RWMutex
	actors      map[id.ActorID]*models.Actor
	byHandle    map[string]id.ActorID
	departments map[id.DepartmentID]*models.Department
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		actors:      make(map[id.ActorID]*models.Actor),
		byHandle:    make(map[string]id.ActorID),
		departments: make(map[id.DepartmentID]*models.Department),
	}
}

func (s *InMemoryStore) CreateDepartment(_ context.Context, dept *models.Department) error {
	if dept == nil {
		return fmt.Errorf("department is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.departments[dept.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	cp := *dept
	s.departments[dept.ID] = &cp
	return nil
}

func (s *InMemoryStore) Create(_ context.Context, actor *models.Actor) error {
	if actor == nil {
		return fmt.Errorf("actor is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	handle := models.NormalizeHandle(actor.Handle)
	if _, ok := s.byHandle[handle]; ok {
		return fmt.Errorf("actor handle must be unique: %w", sentinel.ErrAlreadyUsed)
	}
	if _, ok := s.actors[actor.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.actors[actor.ID] = copyActor(actor)
	s.byHandle[handle] = actor.ID
	return nil
}

// Update replaces role, department, display name and active flag. The handle is immutable.
func (s *InMemoryStore) Update(_ context.Context, actor *models.Actor) error {
	if actor == nil {
		return fmt.Errorf("actor is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.actors[actor.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	updated := copyActor(actor)
	updated.Handle = existing.Handle
	s.actors[actor.ID] = updated
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, actorID id.ActorID) (*models.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	actor, ok := s.actors[actorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyActor(actor), nil
}

func (s *InMemoryStore) FindByHandle(_ context.Context, handle string) (*models.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	actorID, ok := s.byHandle[models.NormalizeHandle(handle)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyActor(s.actors[actorID]), nil
}

func (s *InMemoryStore) FindByRoles(_ context.Context, roles []models.Role) ([]*models.Actor, error) {
	wanted := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		wanted[r] = struct{}{}
	}
	return s.filter(func(a *models.Actor) bool {
		_, ok := wanted[a.Role]
		return ok
	}), nil
}

func (s *InMemoryStore) FindByRoleAndDepartment(_ context.Context, role models.Role, departmentID id.DepartmentID) ([]*models.Actor, error) {
	return s.filter(func(a *models.Actor) bool {
		return a.Role == role && a.DepartmentID != nil && *a.DepartmentID == departmentID
	}), nil
}

func (s *InMemoryStore) DepartmentName(_ context.Context, departmentID id.DepartmentID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dept, ok := s.departments[departmentID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return dept.Name, nil
}

// filter returns matching actors ordered by handle so results are stable.
func (s *InMemoryStore) filter(match func(*models.Actor) bool) []*models.Actor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Actor, 0)
	for _, a := range s.actors {
		if match(a) {
			out = append(out, copyActor(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

func copyActor(a *models.Actor) *models.Actor {
	cp := *a
	if a.DepartmentID != nil {
		dept := *a.DepartmentID
		cp.DepartmentID = &dept
	}
	return &cp
}
