package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	actormodels "filegov/internal/actor/models"
	actorstore "filegov/internal/actor/store"
	"filegov/internal/files/models"
	"filegov/internal/files/store"
	id "filegov/pkg/domain"
	dErrors "filegov/pkg/domain-errors"
	"filegov/pkg/requestcontext"
	"filegov/pkg/testutil"
)

type LifecycleSuite struct {
	suite.Suite
	ctx       context.Context
	store     *store.InMemoryStore
	actors    *actorstore.InMemoryStore
	lifecycle *Lifecycle
	owner     id.ActorID
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), testutil.FixedTime)
	s.store = store.NewInMemory()
	s.actors = actorstore.NewInMemory()
	s.Require().NoError(s.actors.CreateDepartment(s.ctx, &actormodels.Department{
		ID:   testutil.TestIDs.DeptFinance,
		Name: "Finance",
	}))
	s.lifecycle = NewLifecycle(s.store, s.store, s.actors, nil)
	s.owner = id.ActorID(uuid.New())
}

func (s *LifecycleSuite) addFile() *models.ManagedFile {
	file := testutil.NewFileBuilder(s.owner).Build()
	s.Require().NoError(s.store.CreateFile(s.ctx, file))
	return file
}

func (s *LifecycleSuite) move(fileIDs ...id.FileID) (*MoveResult, error) {
	return s.lifecycle.MoveToTrash(s.ctx, MoveInput{
		FileIDs:      fileIDs,
		DeletedBy:    "emp",
		ApprovedBy:   "hod",
		DepartmentID: testutil.Dept(testutil.TestIDs.DeptFinance),
	})
}

func (s *LifecycleSuite) TestMoveToTrashSnapshotsAndRemoves() {
	file := s.addFile()

	result, err := s.move(file.ID)
	s.Require().NoError(err)
	s.Require().Len(result.Moved, 1)

	rec := result.Moved[0]
	s.Equal(file.ID, rec.OriginalFileID)
	s.Equal(file.Name, rec.Name)
	s.Equal("emp", rec.DeletedBy)
	s.Equal("hod", rec.ApprovedBy)
	s.Equal("Finance", rec.DepartmentName)
	s.Equal(testutil.FixedTime, rec.DeletedAt)

	_, err = s.store.FindFile(s.ctx, file.ID)
	s.Error(err, "file must leave the live store")
}

func (s *LifecycleSuite) TestMoveToTrashRetrySkipsMovedFiles() {
	file := s.addFile()
	_, err := s.move(file.ID)
	s.Require().NoError(err)

	result, err := s.move(file.ID)
	s.Require().NoError(err)
	s.Empty(result.Moved)
	s.Equal([]id.FileID{file.ID}, result.Skipped)
}

func (s *LifecycleSuite) TestMoveToTrashFinishesInterruptedMove() {
	file := s.addFile()
	// a crash after the record was written but before the delete
	stale := models.NewTrashRecord(id.TrashID(uuid.New()), file, "emp", "hod", file.DepartmentID, "Finance", testutil.FixedTime)
	s.Require().NoError(s.store.CreateTrashRecord(s.ctx, stale))

	result, err := s.move(file.ID)
	s.Require().NoError(err)
	s.Require().Len(result.Moved, 1)
	s.Equal(stale.ID, result.Moved[0].ID)

	_, err = s.store.FindFile(s.ctx, file.ID)
	s.Error(err)
	records, err := s.store.ListTrash(s.ctx, models.TrashFilter{})
	s.Require().NoError(err)
	s.Len(records, 1)
}

func (s *LifecycleSuite) TestMoveToTrashReportsFailedFiles() {
	kept := s.addFile()
	missing := id.FileID(uuid.New())

	result, err := s.move(kept.ID, missing)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	var batch *BatchError
	s.Require().True(errors.As(err, &batch))
	s.Equal([]id.FileID{missing}, batch.Failed)
	s.Contains(err.Error(), missing.String())

	s.Len(result.Moved, 1, "files moved before the failure stay moved")
}

func (s *LifecycleSuite) TestRestoreRoundTrip() {
	file := s.addFile()
	result, err := s.move(file.ID)
	s.Require().NoError(err)

	restored, err := s.lifecycle.Restore(s.ctx, result.Moved[0].ID)
	s.Require().NoError(err)
	s.Equal(file, restored)

	live, err := s.store.FindFile(s.ctx, file.ID)
	s.Require().NoError(err)
	s.Equal(file, live)

	_, err = s.store.FindTrashRecord(s.ctx, result.Moved[0].ID)
	s.Error(err, "trash record must be gone after restore")
}

func (s *LifecycleSuite) TestRestoreTwiceReportsAlreadyRestored() {
	file := s.addFile()
	result, err := s.move(file.ID)
	s.Require().NoError(err)
	trashID := result.Moved[0].ID

	_, err = s.lifecycle.Restore(s.ctx, trashID)
	s.Require().NoError(err)

	_, err = s.lifecycle.Restore(s.ctx, trashID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Contains(err.Error(), "already restored")
}

func (s *LifecycleSuite) TestRestoreConflictsWithLiveFile() {
	file := s.addFile()
	rec := models.NewTrashRecord(id.TrashID(uuid.New()), file, "emp", "hod", nil, "", testutil.FixedTime)
	s.Require().NoError(s.store.CreateTrashRecord(s.ctx, rec))

	_, err := s.lifecycle.Restore(s.ctx, rec.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.store.FindTrashRecord(s.ctx, rec.ID)
	s.NoError(err, "record survives a refused restore")
}

func (s *LifecycleSuite) TestPurgeThenRestoreIsNotFound() {
	file := s.addFile()
	result, err := s.move(file.ID)
	s.Require().NoError(err)
	trashID := result.Moved[0].ID

	_, err = s.lifecycle.Purge(s.ctx, trashID)
	s.Require().NoError(err)

	_, err = s.lifecycle.Restore(s.ctx, trashID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Contains(err.Error(), "purged")

	_, err = s.store.FindFile(s.ctx, file.ID)
	s.Error(err, "purged file never comes back")
}

func (s *LifecycleSuite) TestPurgeDistinguishesMissingCases() {
	file := s.addFile()
	result, err := s.move(file.ID)
	s.Require().NoError(err)
	trashID := result.Moved[0].ID
	_, err = s.lifecycle.Purge(s.ctx, trashID)
	s.Require().NoError(err)

	s.Run("already purged", func() {
		_, err := s.lifecycle.Purge(s.ctx, trashID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Contains(err.Error(), "already purged")
	})

	s.Run("never existed", func() {
		_, err := s.lifecycle.Purge(s.ctx, id.TrashID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Contains(err.Error(), "never existed")
	})
}

func (s *LifecycleSuite) TestListTrashFiltersByDepartment() {
	finance := s.addFile()
	legal := testutil.NewFileBuilder(s.owner).InDepartment(testutil.TestIDs.DeptLegal).Build()
	s.Require().NoError(s.store.CreateFile(s.ctx, legal))

	_, err := s.lifecycle.MoveToTrash(s.ctx, MoveInput{FileIDs: []id.FileID{finance.ID, legal.ID}, DeletedBy: "admin", ApprovedBy: "admin"})
	s.Require().NoError(err)

	all, err := s.lifecycle.ListTrash(s.ctx, models.TrashFilter{})
	s.Require().NoError(err)
	s.Len(all, 2)

	onlyLegal, err := s.lifecycle.ListTrash(s.ctx, models.TrashFilter{DepartmentID: testutil.Dept(testutil.TestIDs.DeptLegal)})
	s.Require().NoError(err)
	s.Require().Len(onlyLegal, 1)
	s.Equal(legal.ID, onlyLegal[0].OriginalFileID)
}
