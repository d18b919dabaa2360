package store

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"filegov/internal/files/models"
	id "filegov/pkg/domain"
	"filegov/pkg/platform/sentinel"
)

// memState is shared between an InMemoryStore and the views handed out by RunInTx.
type memState struct {
	mu         sync.RWMutex
	files      map[id.FileID]*models.ManagedFile
	trash      map[id.TrashID]*models.TrashRecord
	byOriginal map[id.FileID]id.TrashID
	tombstones map[id.TrashID]*models.TrashTombstone
}

type memSnapshot struct {
	files      map[id.FileID]*models.ManagedFile
	trash      map[id.TrashID]*models.TrashRecord
	byOriginal map[id.FileID]id.TrashID
	tombstones map[id.TrashID]*models.TrashTombstone
}

// snapshot copies the maps. Values are replaced, never mutated in place,
// so a shallow copy is enough to roll back.
func (m *memState) snapshot() memSnapshot {
	return memSnapshot{
		files:      maps.Clone(m.files),
		trash:      maps.Clone(m.trash),
		byOriginal: maps.Clone(m.byOriginal),
		tombstones: maps.Clone(m.tombstones),
	}
}

func (m *memState) restore(s memSnapshot) {
	m.files = s.files
	m.trash = s.trash
	m.byOriginal = s.byOriginal
	m.tombstones = s.tombstones
}

// InMemoryStore keeps live files, trash records and tombstones behind one
// lock, so a file is observed either live or trashed, never both or neither.
type InMemoryStore struct {
	state *memState
	inTx  bool
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{state: &memState{
		files:      make(map[id.FileID]*models.ManagedFile),
		trash:      make(map[id.TrashID]*models.TrashRecord),
		byOriginal: make(map[id.FileID]id.TrashID),
		tombstones: make(map[id.TrashID]*models.TrashTombstone),
	}}
}

// RunInTx runs fn against a view that holds the store's write lock for the
// whole call. Any error rolls every change made through the view back.
func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *InMemoryStore) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	snap := s.state.snapshot()
	if err := fn(ctx, &InMemoryStore{state: s.state, inTx: true}); err != nil {
		s.state.restore(snap)
		return err
	}
	return nil
}

func (s *InMemoryStore) rlock() func() {
	if s.inTx {
		return func() {}
	}
	s.state.mu.RLock()
	return s.state.mu.RUnlock
}

func (s *InMemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.state.mu.Lock()
	return s.state.mu.Unlock
}

// Live files.

func (s *InMemoryStore) CreateFile(_ context.Context, file *models.ManagedFile) error {
	if file == nil {
		return fmt.Errorf("file is required")
	}
	defer s.lock()()
	if _, ok := s.state.files[file.ID]; ok {
		return fmt.Errorf("file %s already live: %w", file.ID, sentinel.ErrAlreadyUsed)
	}
	s.state.files[file.ID] = copyFile(file)
	return nil
}

func (s *InMemoryStore) FindFile(_ context.Context, fileID id.FileID) (*models.ManagedFile, error) {
	defer s.rlock()()
	file, ok := s.state.files[fileID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyFile(file), nil
}

func (s *InMemoryStore) DeleteFile(_ context.Context, fileID id.FileID) error {
	defer s.lock()()
	if _, ok := s.state.files[fileID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.state.files, fileID)
	return nil
}

// UpdateOwner moves custody of every file or of none.
func (s *InMemoryStore) UpdateOwner(_ context.Context, fileIDs []id.FileID, ownerID id.ActorID, now time.Time) error {
	defer s.lock()()
	for _, fileID := range fileIDs {
		if _, ok := s.state.files[fileID]; !ok {
			return fmt.Errorf("file %s: %w", fileID, sentinel.ErrNotFound)
		}
	}
	for _, fileID := range fileIDs {
		updated := copyFile(s.state.files[fileID])
		updated.OwnerID = ownerID
		updated.UpdatedAt = now
		s.state.files[fileID] = updated
	}
	return nil
}

func (s *InMemoryStore) ListFiles(_ context.Context, filter models.FileFilter) ([]*models.ManagedFile, error) {
	defer s.rlock()()
	out := make([]*models.ManagedFile, 0)
	for _, f := range s.state.files {
		if filter.Matches(f) {
			out = append(out, copyFile(f))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Trash.

func (s *InMemoryStore) CreateTrashRecord(_ context.Context, rec *models.TrashRecord) error {
	if rec == nil {
		return fmt.Errorf("trash record is required")
	}
	defer s.lock()()
	if _, ok := s.state.byOriginal[rec.OriginalFileID]; ok {
		return fmt.Errorf("file %s already trashed: %w", rec.OriginalFileID, sentinel.ErrAlreadyUsed)
	}
	if _, ok := s.state.trash[rec.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	cp := *rec
	s.state.trash[rec.ID] = &cp
	s.state.byOriginal[rec.OriginalFileID] = rec.ID
	return nil
}

func (s *InMemoryStore) FindTrashRecord(_ context.Context, trashID id.TrashID) (*models.TrashRecord, error) {
	defer s.rlock()()
	rec, ok := s.state.trash[trashID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *InMemoryStore) FindTrashByOriginalFileID(_ context.Context, fileID id.FileID) (*models.TrashRecord, error) {
	defer s.rlock()()
	trashID, ok := s.state.byOriginal[fileID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.state.trash[trashID]
	return &cp, nil
}

func (s *InMemoryStore) DeleteTrashRecord(_ context.Context, trashID id.TrashID) error {
	defer s.lock()()
	rec, ok := s.state.trash[trashID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.state.trash, trashID)
	delete(s.state.byOriginal, rec.OriginalFileID)
	return nil
}

// ListTrash returns records newest first.
func (s *InMemoryStore) ListTrash(_ context.Context, filter models.TrashFilter) ([]*models.TrashRecord, error) {
	defer s.rlock()()
	out := make([]*models.TrashRecord, 0)
	for _, rec := range s.state.trash {
		if filter.Matches(rec) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DeletedAt.Equal(out[j].DeletedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].DeletedAt.After(out[j].DeletedAt)
	})
	return out, nil
}

func (s *InMemoryStore) SaveTombstone(_ context.Context, tomb *models.TrashTombstone) error {
	if tomb == nil {
		return fmt.Errorf("tombstone is required")
	}
	defer s.lock()()
	cp := *tomb
	s.state.tombstones[tomb.TrashID] = &cp
	return nil
}

func (s *InMemoryStore) FindTombstone(_ context.Context, trashID id.TrashID) (*models.TrashTombstone, error) {
	defer s.rlock()()
	tomb, ok := s.state.tombstones[trashID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *tomb
	return &cp, nil
}

func copyFile(f *models.ManagedFile) *models.ManagedFile {
	cp := *f
	return &cp
}
