package seeder

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	actormodels "filegov/internal/actor/models"
	actorstore "filegov/internal/actor/store"
	filemodels "filegov/internal/files/models"
	filestore "filegov/internal/files/store"
)

func TestSeedAll(t *testing.T) {
	ctx := context.Background()
	actors := actorstore.NewInMemory()
	files := filestore.NewInMemory()
	s := New(actors, files, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, s.SeedAll(ctx))

	root, err := actors.FindByHandle(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, actormodels.RoleSuperAdmin, root.Role)
	assert.Nil(t, root.DepartmentID)

	heads, err := actors.FindByRoleAndDepartment(ctx, actormodels.RoleHOD, DepartmentID("Finance"))
	require.NoError(t, err)
	require.Len(t, heads, 1)
	assert.Equal(t, "hod-finance", heads[0].Handle)

	ledger, err := files.FindFile(ctx, FileID("q1-ledger.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, ActorID("alice"), ledger.OwnerID)

	finance := DepartmentID("Finance")
	list, err := files.ListFiles(ctx, filemodels.FileFilter{DepartmentID: &finance})
	require.NoError(t, err)
	assert.Len(t, list, 3)

	t.Run("second run is a no-op", func(t *testing.T) {
		require.NoError(t, s.SeedAll(ctx))
		list, err := files.ListFiles(ctx, filemodels.FileFilter{})
		require.NoError(t, err)
		assert.Len(t, list, len(demoFiles))
	})
}
