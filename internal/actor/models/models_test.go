package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "filegov/pkg/domain"
	dErrors "filegov/pkg/domain-errors"
)

func TestNewActor(t *testing.T) {
	now := time.Now()
	dept := id.DepartmentID(uuid.New())

	t.Run("employee requires department", func(t *testing.T) {
		_, err := NewActor(id.ActorID(uuid.New()), "e1", "", RoleEmployee, nil, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("admin drops department", func(t *testing.T) {
		a, err := NewActor(id.ActorID(uuid.New()), "a1", "Admin One", RoleAdmin, &dept, now)
		require.NoError(t, err)
		assert.Nil(t, a.DepartmentID)
		assert.Nil(t, a.Department())
	})

	t.Run("handle normalised and display name defaulted", func(t *testing.T) {
		a, err := NewActor(id.ActorID(uuid.New()), "  E1 ", " ", RoleEmployee, &dept, now)
		require.NoError(t, err)
		assert.Equal(t, "e1", a.Handle)
		assert.Equal(t, "e1", a.DisplayName)
		assert.True(t, a.Active)
		assert.Equal(t, &dept, a.Department())
	})

	t.Run("rejects unknown role and blank handle", func(t *testing.T) {
		_, err := NewActor(id.ActorID(uuid.New()), "x", "", Role("INTERN"), &dept, now)
		assert.Error(t, err)
		_, err = NewActor(id.ActorID(uuid.New()), " ", "", RoleHOD, &dept, now)
		assert.Error(t, err)
	})
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" hod ")
	require.NoError(t, err)
	assert.Equal(t, RoleHOD, r)

	_, err = ParseRole("intern")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
