package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"filegov/internal/actor/models"
	id "filegov/pkg/domain"
	"filegov/pkg/platform/sentinel"
)

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) FindByID(ctx context.Context, actorID id.ActorID) (*models.Actor, error) {
	args := m.Called(ctx, actorID)
	if a := args.Get(0); a != nil {
		return a.(*models.Actor), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDirectory) FindByHandle(ctx context.Context, handle string) (*models.Actor, error) {
	args := m.Called(ctx, handle)
	if a := args.Get(0); a != nil {
		return a.(*models.Actor), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDirectory) FindByRoles(ctx context.Context, roles []models.Role) ([]*models.Actor, error) {
	args := m.Called(ctx, roles)
	return args.Get(0).([]*models.Actor), args.Error(1)
}

func (m *mockDirectory) FindByRoleAndDepartment(ctx context.Context, role models.Role, departmentID id.DepartmentID) ([]*models.Actor, error) {
	args := m.Called(ctx, role, departmentID)
	return args.Get(0).([]*models.Actor), args.Error(1)
}

func (m *mockDirectory) DepartmentName(ctx context.Context, departmentID id.DepartmentID) (string, error) {
	args := m.Called(ctx, departmentID)
	return args.String(0), args.Error(1)
}

func TestCachedDirectory_FindByHandle(t *testing.T) {
	ctx := context.Background()
	next := new(mockDirectory)
	dir := NewCachedDirectory(next, 16, time.Minute)

	actor := &models.Actor{ID: id.ActorID(uuid.New()), Handle: "alice", Role: models.RoleEmployee, Active: true}
	next.On("FindByHandle", ctx, "alice").Return(actor, nil).Once()

	first, err := dir.FindByHandle(ctx, "Alice")
	require.NoError(t, err)
	second, err := dir.FindByHandle(ctx, "alice ")
	require.NoError(t, err)

	assert.Equal(t, actor.ID, first.ID)
	assert.Equal(t, actor.ID, second.ID)
	next.AssertNumberOfCalls(t, "FindByHandle", 1)

	dir.Invalidate("ALICE")
	next.On("FindByHandle", ctx, "alice").Return(actor, nil).Once()
	_, err = dir.FindByHandle(ctx, "alice")
	require.NoError(t, err)
	next.AssertNumberOfCalls(t, "FindByHandle", 2)
}

func TestCachedDirectory_MissesAreNotCached(t *testing.T) {
	ctx := context.Background()
	next := new(mockDirectory)
	dir := NewCachedDirectory(next, 16, time.Minute)

	next.On("FindByHandle", ctx, "ghost").Return(nil, sentinel.ErrNotFound).Twice()

	_, err := dir.FindByHandle(ctx, "ghost")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = dir.FindByHandle(ctx, "ghost")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	next.AssertExpectations(t)
}

func TestCachedDirectory_DepartmentName(t *testing.T) {
	ctx := context.Background()
	next := new(mockDirectory)
	dir := NewCachedDirectory(next, 16, time.Minute)
	dept := id.DepartmentID(uuid.New())

	next.On("DepartmentName", ctx, dept).Return("Finance", nil).Once()

	for range 3 {
		name, err := dir.DepartmentName(ctx, dept)
		require.NoError(t, err)
		assert.Equal(t, "Finance", name)
	}
	next.AssertExpectations(t)
}

func TestCachedDirectory_AudienceQueriesPassThrough(t *testing.T) {
	ctx := context.Background()
	next := new(mockDirectory)
	dir := NewCachedDirectory(next, 16, time.Minute)
	roles := []models.Role{models.RoleAdmin}

	next.On("FindByRoles", ctx, roles).Return([]*models.Actor{}, nil).Twice()
	_, _ = dir.FindByRoles(ctx, roles)
	_, _ = dir.FindByRoles(ctx, roles)
	next.AssertExpectations(t)
}
