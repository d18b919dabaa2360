package service

import (
	"context"
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

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.InMemoryStore
	actors  *actorstore.InMemoryStore
	service *Service

	employee   *actormodels.Actor
	hod        *actormodels.Actor
	legalHOD   *actormodels.Actor
	admin      *actormodels.Actor
	superAdmin *actormodels.Actor
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), testutil.FixedTime)
	s.store = store.NewInMemory()
	s.actors = actorstore.NewInMemory()
	s.service = New(s.store, s.store, NewInMemoryTx(s.store), s.actors, WithDepartmentNamer(s.actors))

	s.employee = s.addActor(testutil.NewActorBuilder("emp").Build())
	s.hod = s.addActor(testutil.NewActorBuilder("hod").WithRole(actormodels.RoleHOD).Build())
	s.legalHOD = s.addActor(testutil.NewActorBuilder("legal-hod").WithRole(actormodels.RoleHOD).InDepartment(testutil.TestIDs.DeptLegal).Build())
	s.admin = s.addActor(testutil.NewActorBuilder("admin").WithRole(actormodels.RoleAdmin).Build())
	s.superAdmin = s.addActor(testutil.NewActorBuilder("root").WithRole(actormodels.RoleSuperAdmin).Build())
}

func (s *ServiceSuite) addActor(a *actormodels.Actor) *actormodels.Actor {
	s.Require().NoError(s.actors.Create(s.ctx, a))
	return a
}

func (s *ServiceSuite) trashFile(file *models.ManagedFile) id.TrashID {
	s.Require().NoError(s.store.CreateFile(s.ctx, file))
	result, err := NewLifecycle(s.store, s.store, nil, nil).MoveToTrash(s.ctx, MoveInput{
		FileIDs:    []id.FileID{file.ID},
		DeletedBy:  s.employee.Handle,
		ApprovedBy: s.hod.Handle,
	})
	s.Require().NoError(err)
	return result.Moved[0].ID
}

func (s *ServiceSuite) TestListTrashScope() {
	s.trashFile(testutil.NewFileBuilder(s.employee.ID).Build())
	s.trashFile(testutil.NewFileBuilder(s.employee.ID).InDepartment(testutil.TestIDs.DeptLegal).Build())

	s.Run("admin sees every department", func() {
		records, err := s.service.ListTrash(s.ctx, s.admin.Handle)
		s.Require().NoError(err)
		s.Len(records, 2)
	})

	s.Run("hod sees own department", func() {
		records, err := s.service.ListTrash(s.ctx, s.legalHOD.Handle)
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.True(id.SameDepartment(records[0].DepartmentID, testutil.Dept(testutil.TestIDs.DeptLegal)))
	})

	s.Run("employee is forbidden", func() {
		_, err := s.service.ListTrash(s.ctx, s.employee.Handle)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown actor is forbidden", func() {
		_, err := s.service.ListTrash(s.ctx, "ghost")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestRestoreTrash() {
	file := testutil.NewFileBuilder(s.employee.ID).Build()
	trashID := s.trashFile(file)

	s.Run("hod may not restore", func() {
		_, err := s.service.RestoreTrash(s.ctx, s.hod.Handle, trashID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("admin restores under the original id", func() {
		restored, err := s.service.RestoreTrash(s.ctx, s.admin.Handle, trashID)
		s.Require().NoError(err)
		s.Equal(file.ID, restored.ID)

		got, err := s.service.GetFile(s.ctx, s.employee.Handle, file.ID)
		s.Require().NoError(err)
		s.Equal(file.Name, got.Name)
	})

	s.Run("second restore is not found", func() {
		_, err := s.service.RestoreTrash(s.ctx, s.superAdmin.Handle, trashID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestPurgeTrash() {
	trashID := s.trashFile(testutil.NewFileBuilder(s.employee.ID).Build())

	s.Require().NoError(s.service.PurgeTrash(s.ctx, s.superAdmin.Handle, trashID))

	err := s.service.PurgeTrash(s.ctx, s.superAdmin.Handle, trashID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	records, err := s.service.ListTrash(s.ctx, s.admin.Handle)
	s.Require().NoError(err)
	s.Empty(records)
}

func (s *ServiceSuite) TestCancelledContextAbortsTransaction() {
	trashID := s.trashFile(testutil.NewFileBuilder(s.employee.ID).Build())
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	err := s.service.PurgeTrash(ctx, s.admin.Handle, trashID)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))

	_, err = s.store.FindTrashRecord(s.ctx, trashID)
	s.NoError(err)
}

func (s *ServiceSuite) TestListFilesByRole() {
	finance := testutil.NewFileBuilder(s.employee.ID).Build()
	legal := testutil.NewFileBuilder(s.legalHOD.ID).InDepartment(testutil.TestIDs.DeptLegal).Build()
	// Owned by the finance employee but filed under Legal, as after a
	// cross-department transfer, and one with no department at all.
	transferred := testutil.NewFileBuilder(s.employee.ID).InDepartment(testutil.TestIDs.DeptLegal).Build()
	orphan := testutil.NewFileBuilder(s.employee.ID).WithoutDepartment().Build()
	for _, f := range []*models.ManagedFile{finance, legal, transferred, orphan} {
		s.Require().NoError(s.store.CreateFile(s.ctx, f))
	}

	all, err := s.service.ListFiles(s.ctx, s.admin.Handle)
	s.Require().NoError(err)
	s.Len(all, 4)

	own, err := s.service.ListFiles(s.ctx, s.employee.Handle)
	s.Require().NoError(err)
	s.ElementsMatch([]id.FileID{finance.ID, transferred.ID, orphan.ID}, fileIDs(own))

	for _, f := range own {
		_, err := s.service.GetFile(s.ctx, s.employee.Handle, f.ID)
		s.NoError(err, "listed file %s must be viewable", f.Name)
	}

	legalView, err := s.service.ListFiles(s.ctx, s.legalHOD.Handle)
	s.Require().NoError(err)
	s.ElementsMatch([]id.FileID{legal.ID, transferred.ID}, fileIDs(legalView))

	_, err = s.service.GetFile(s.ctx, s.employee.Handle, legal.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.GetFile(s.ctx, s.employee.Handle, id.FileID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func fileIDs(files []*models.ManagedFile) []id.FileID {
	out := make([]id.FileID, 0, len(files))
	for _, f := range files {
		out = append(out, f.ID)
	}
	return out
}
