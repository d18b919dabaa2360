package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	actormodels "filegov/internal/actor/models"
	actorstore "filegov/internal/actor/store"
	filemodels "filegov/internal/files/models"
	filestore "filegov/internal/files/store"
	"filegov/internal/governance/models"
	"filegov/internal/governance/store"
	id "filegov/pkg/domain"
	dErrors "filegov/pkg/domain-errors"
	"filegov/pkg/requestcontext"
	"filegov/pkg/testutil"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) RequestCreated(ctx context.Context, req *models.Request) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockNotifier) RequestResolved(ctx context.Context, req *models.Request) error {
	return m.Called(ctx, req).Error(0)
}

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	actors   *actorstore.InMemoryStore
	files    *filestore.InMemoryStore
	requests *store.InMemoryStore
	notifier *mockNotifier
	service  *Service

	e1      *actormodels.Actor // employee, finance
	e2      *actormodels.Actor // employee, legal
	hodD1   *actormodels.Actor // hod, finance
	hodD2   *actormodels.Actor // hod, legal
	admin   *actormodels.Actor
	root    *actormodels.Actor
	u9      *actormodels.Actor
	retired *actormodels.Actor
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), testutil.FixedTime)
	s.actors = actorstore.NewInMemory()
	s.files = filestore.NewInMemory()
	s.requests = store.NewInMemory()
	s.notifier = &mockNotifier{}
	s.notifier.On("RequestCreated", mock.Anything, mock.Anything).Return(nil).Maybe()
	s.notifier.On("RequestResolved", mock.Anything, mock.Anything).Return(nil).Maybe()

	s.service = New(s.requests, s.files, NewInMemoryTx(s.requests, s.files, nil), s.actors,
		WithNotifier(s.notifier),
		WithDepartmentNamer(s.actors),
	)

	finance, legal := testutil.TestIDs.DeptFinance, testutil.TestIDs.DeptLegal
	s.Require().NoError(s.actors.CreateDepartment(s.ctx, &actormodels.Department{ID: finance, Name: "Finance"}))
	s.Require().NoError(s.actors.CreateDepartment(s.ctx, &actormodels.Department{ID: legal, Name: "Legal"}))

	s.e1 = s.addActor(testutil.NewActorBuilder("e1").InDepartment(finance).Build())
	s.e2 = s.addActor(testutil.NewActorBuilder("e2").InDepartment(legal).Build())
	s.hodD1 = s.addActor(testutil.NewActorBuilder("hod-d1").WithRole(actormodels.RoleHOD).InDepartment(finance).Build())
	s.hodD2 = s.addActor(testutil.NewActorBuilder("hod-d2").WithRole(actormodels.RoleHOD).InDepartment(legal).Build())
	s.admin = s.addActor(testutil.NewActorBuilder("a1").WithRole(actormodels.RoleAdmin).Build())
	s.root = s.addActor(testutil.NewActorBuilder("root").WithRole(actormodels.RoleSuperAdmin).Build())
	s.u9 = s.addActor(testutil.NewActorBuilder("u9").WithDisplayName("User Nine").InDepartment(legal).Build())
	s.retired = s.addActor(testutil.NewActorBuilder("retired").Inactive().Build())
}

func (s *ServiceSuite) addActor(a *actormodels.Actor) *actormodels.Actor {
	s.Require().NoError(s.actors.Create(s.ctx, a))
	return a
}

func (s *ServiceSuite) addFile(owner *actormodels.Actor) *filemodels.ManagedFile {
	file := testutil.NewFileBuilder(owner.ID).Build()
	s.Require().NoError(s.files.CreateFile(s.ctx, file))
	return file
}

func (s *ServiceSuite) create(kind models.Kind, sender *actormodels.Actor, recipient string, files ...id.FileID) (*models.Request, error) {
	return s.service.CreateRequest(s.ctx, CreateRequestCommand{
		Kind:            kind,
		FileIDs:         files,
		SenderHandle:    sender.Handle,
		Reason:          "stale",
		RecipientHandle: recipient,
	})
}

func (s *ServiceSuite) resolve(req *models.Request, action models.Action, approver *actormodels.Actor, comment string) (*models.Request, error) {
	return s.service.ResolveRequest(s.ctx, ResolveCommand{
		RequestID:      req.ID,
		Action:         action,
		ApproverHandle: approver.Handle,
		DenialComment:  comment,
	})
}

func (s *ServiceSuite) isLive(fileID id.FileID) bool {
	_, err := s.files.FindFile(s.ctx, fileID)
	return err == nil
}

func (s *ServiceSuite) TestEmployeeDeleteScenario() {
	f1 := s.addFile(s.e1)

	req, err := s.create(models.KindDelete, s.e1, "", f1.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, req.Status)
	s.True(s.isLive(f1.ID))
	s.notifier.AssertCalled(s.T(), "RequestCreated", mock.Anything, mock.MatchedBy(func(r *models.Request) bool { return r.ID == req.ID }))

	_, err = s.resolve(req, models.ActionApprove, s.hodD2, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.True(s.isLive(f1.ID), "a refused approval has no side effect")

	resolved, err := s.resolve(req, models.ActionApprove, s.hodD1, "")
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, resolved.Status)
	s.Equal(s.hodD1.Handle, resolved.ResolvedBy)
	s.Equal(testutil.FixedTime, *resolved.ResolvedAt)

	s.False(s.isLive(f1.ID))
	rec, err := s.files.FindTrashByOriginalFileID(s.ctx, f1.ID)
	s.Require().NoError(err)
	s.Equal(s.e1.Handle, rec.DeletedBy)
	s.Equal(s.hodD1.Handle, rec.ApprovedBy)
	s.Equal("Finance", rec.DepartmentName)

	s.notifier.AssertCalled(s.T(), "RequestResolved", mock.Anything, mock.MatchedBy(func(r *models.Request) bool {
		return r.ID == req.ID && r.Status == models.StatusCompleted
	}))
}

func (s *ServiceSuite) TestAdminTransferAutoCompletes() {
	f2 := s.addFile(s.admin)

	req, err := s.create(models.KindTransfer, s.admin, "u9", f2.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, req.Status)
	s.Equal(s.admin.Handle, req.ResolvedBy)
	s.Equal(req.CreatedAt, *req.ResolvedAt)
	s.Equal("User Nine", req.Recipient.DisplayName)

	file, err := s.files.FindFile(s.ctx, f2.ID)
	s.Require().NoError(err)
	s.Equal(s.u9.ID, file.OwnerID)
	s.notifier.AssertNotCalled(s.T(), "RequestCreated", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestSuperAdminDeleteAutoCompletes() {
	f := s.addFile(s.e1)

	req, err := s.create(models.KindDelete, s.root, "", f.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, req.Status)
	s.False(s.isLive(f.ID))

	rec, err := s.files.FindTrashByOriginalFileID(s.ctx, f.ID)
	s.Require().NoError(err)
	s.Equal("root", rec.ApprovedBy)
	s.True(id.SameDepartment(rec.DepartmentID, f.DepartmentID), "admin senders fall back to the file's department")

	stored, err := s.requests.FindByID(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, stored.Status)
}

func (s *ServiceSuite) TestCreateValidation() {
	f := s.addFile(s.e1)

	tests := []struct {
		name string
		cmd  CreateRequestCommand
	}{
		{"empty files", CreateRequestCommand{Kind: models.KindDelete, SenderHandle: "e1", Reason: "x"}},
		{"blank reason", CreateRequestCommand{Kind: models.KindDelete, FileIDs: []id.FileID{f.ID}, SenderHandle: "e1", Reason: " "}},
		{"unknown sender", CreateRequestCommand{Kind: models.KindDelete, FileIDs: []id.FileID{f.ID}, SenderHandle: "ghost", Reason: "x"}},
		{"inactive sender", CreateRequestCommand{Kind: models.KindDelete, FileIDs: []id.FileID{f.ID}, SenderHandle: "retired", Reason: "x"}},
		{"unknown kind", CreateRequestCommand{Kind: "ARCHIVE", FileIDs: []id.FileID{f.ID}, SenderHandle: "e1", Reason: "x"}},
		{"transfer without recipient", CreateRequestCommand{Kind: models.KindTransfer, FileIDs: []id.FileID{f.ID}, SenderHandle: "e1", Reason: "x"}},
		{"transfer to unknown recipient", CreateRequestCommand{Kind: models.KindTransfer, FileIDs: []id.FileID{f.ID}, SenderHandle: "e1", Reason: "x", RecipientHandle: "ghost"}},
		{"transfer to inactive recipient", CreateRequestCommand{Kind: models.KindTransfer, FileIDs: []id.FileID{f.ID}, SenderHandle: "e1", Reason: "x", RecipientHandle: "retired"}},
		{"transfer to self", CreateRequestCommand{Kind: models.KindTransfer, FileIDs: []id.FileID{f.ID}, SenderHandle: "e1", Reason: "x", RecipientHandle: "E1"}},
		{"file not live", CreateRequestCommand{Kind: models.KindDelete, FileIDs: []id.FileID{id.FileID(uuid.New())}, SenderHandle: "e1", Reason: "x"}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.CreateRequest(s.ctx, tt.cmd)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
		})
	}

	sent, err := s.requests.ListBySender(s.ctx, "e1")
	s.Require().NoError(err)
	s.Empty(sent, "failed creations persist nothing")
}

func (s *ServiceSuite) TestResolveErrors() {
	f := s.addFile(s.e1)
	req, err := s.create(models.KindDelete, s.e1, "", f.ID)
	s.Require().NoError(err)

	s.Run("unknown request", func() {
		_, err := s.service.ResolveRequest(s.ctx, ResolveCommand{RequestID: id.RequestID(uuid.New()), Action: models.ActionApprove, ApproverHandle: "hod-d1"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("employee may not approve", func() {
		_, err := s.resolve(req, models.ActionApprove, s.e2, "")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown approver", func() {
		_, err := s.service.ResolveRequest(s.ctx, ResolveCommand{RequestID: req.ID, Action: models.ActionApprove, ApproverHandle: "ghost"})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("deny needs a comment", func() {
		_, err := s.resolve(req, models.ActionDeny, s.hodD1, "  ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown action", func() {
		_, err := s.resolve(req, models.Action("ESCALATE"), s.hodD1, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	stored, err := s.requests.FindByID(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, stored.Status)
}

func (s *ServiceSuite) TestResolveTerminalAlwaysConflicts() {
	f := s.addFile(s.e1)
	req, err := s.create(models.KindDelete, s.e1, "", f.ID)
	s.Require().NoError(err)

	denied, err := s.resolve(req, models.ActionDeny, s.hodD1, "still referenced by audit")
	s.Require().NoError(err)
	s.Equal(models.StatusDenied, denied.Status)
	s.Equal("still referenced by audit", denied.DenialComment)
	s.True(s.isLive(f.ID), "denial leaves the file alone")

	for _, approver := range []*actormodels.Actor{s.hodD1, s.admin, s.root, s.e2} {
		for _, action := range []models.Action{models.ActionApprove, models.ActionDeny} {
			_, err := s.resolve(req, action, approver, "again")
			s.True(dErrors.HasCode(err, dErrors.CodeConflict), "%s %s", approver.Handle, action)
		}
	}
}

func (s *ServiceSuite) TestConcurrentApproveAndDenyHaveOneWinner() {
	f := s.addFile(s.e1)
	req, err := s.create(models.KindDelete, s.e1, "", f.ID)
	s.Require().NoError(err)

	result := testutil.RunConcurrent(16, func(idx int) error {
		if idx%2 == 0 {
			_, err := s.resolve(req, models.ActionApprove, s.hodD1, "")
			return err
		}
		_, err := s.resolve(req, models.ActionDeny, s.admin, "no")
		return err
	})

	s.Equal(int32(1), result.Successes)
	s.Equal(int32(15), result.Conflicts)

	stored, err := s.requests.FindByID(s.ctx, req.ID)
	s.Require().NoError(err)
	if stored.Status == models.StatusCompleted {
		s.False(s.isLive(f.ID))
	} else {
		s.Equal(models.StatusDenied, stored.Status)
		s.True(s.isLive(f.ID))
	}
}

func (s *ServiceSuite) TestFailedSideEffectLeavesRequestPending() {
	f := s.addFile(s.e1)
	req, err := s.create(models.KindTransfer, s.e1, "u9", f.ID)
	s.Require().NoError(err)

	// the file disappears before approval
	s.Require().NoError(s.files.DeleteFile(s.ctx, f.ID))

	_, err = s.resolve(req, models.ActionApprove, s.hodD1, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	stored, err := s.requests.FindByID(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, stored.Status)
}

func (s *ServiceSuite) TestPartialDeleteRollsBack() {
	kept := s.addFile(s.e1)
	gone := s.addFile(s.e1)
	req, err := s.create(models.KindDelete, s.e1, "", kept.ID, gone.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.files.DeleteFile(s.ctx, gone.ID))

	_, err = s.resolve(req, models.ActionApprove, s.hodD1, "")
	s.Require().Error(err)

	s.True(s.isLive(kept.ID), "the transaction undoes moves made before the failure")
	_, err = s.files.FindTrashByOriginalFileID(s.ctx, kept.ID)
	s.Error(err)
}

func (s *ServiceSuite) TestNotifierFailureIsSwallowed() {
	notifier := &mockNotifier{}
	notifier.On("RequestCreated", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	notifier.On("RequestResolved", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	svc := New(s.requests, s.files, NewInMemoryTx(s.requests, s.files, nil), s.actors, WithNotifier(notifier))

	f := s.addFile(s.e1)
	req, err := svc.CreateRequest(s.ctx, CreateRequestCommand{Kind: models.KindDelete, FileIDs: []id.FileID{f.ID}, SenderHandle: "e1", Reason: "stale"})
	s.Require().NoError(err)

	resolved, err := svc.ResolveRequest(s.ctx, ResolveCommand{RequestID: req.ID, Action: models.ActionApprove, ApproverHandle: "hod-d1"})
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, resolved.Status)
	notifier.AssertNumberOfCalls(s.T(), "RequestResolved", 1)
}

func (s *ServiceSuite) TestSnapshotsSurviveRoleChange() {
	f := s.addFile(s.e1)
	req, err := s.create(models.KindDelete, s.e1, "", f.ID)
	s.Require().NoError(err)

	promoted := *s.e1
	promoted.Role = actormodels.RoleHOD
	s.Require().NoError(s.actors.Update(s.ctx, &promoted))

	stored, err := s.requests.FindByID(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(actormodels.RoleEmployee, stored.SenderRole)

	// the HOD of finance still approves the snapshotted employee request
	_, err = s.resolve(req, models.ActionApprove, s.hodD1, "")
	s.NoError(err)
}

func (s *ServiceSuite) TestApproverDepartmentIsReadLive() {
	f := s.addFile(s.e1)
	req, err := s.create(models.KindDelete, s.e1, "", f.ID)
	s.Require().NoError(err)

	moved := *s.hodD2
	moved.DepartmentID = testutil.Dept(testutil.TestIDs.DeptFinance)
	s.Require().NoError(s.actors.Update(s.ctx, &moved))

	_, err = s.resolve(req, models.ActionApprove, s.hodD2, "")
	s.NoError(err)
}

func (s *ServiceSuite) TestGetRequestVisibility() {
	f := s.addFile(s.e1)
	req, err := s.create(models.KindTransfer, s.e1, "u9", f.ID)
	s.Require().NoError(err)

	for _, viewer := range []*actormodels.Actor{s.e1, s.u9, s.hodD1, s.admin, s.root} {
		got, err := s.service.GetRequest(s.ctx, req.ID, viewer.Handle)
		s.Require().NoError(err, viewer.Handle)
		s.Equal(req.ID, got.ID)
	}
	for _, viewer := range []*actormodels.Actor{s.e2, s.hodD2} {
		_, err := s.service.GetRequest(s.ctx, req.ID, viewer.Handle)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden), viewer.Handle)
	}

	_, err = s.service.GetRequest(s.ctx, id.RequestID(uuid.New()), s.admin.Handle)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestDashboard() {
	f1, f2, f3 := s.addFile(s.e1), s.addFile(s.e2), s.addFile(s.hodD1)

	older, err := s.create(models.KindDelete, s.e1, "", f1.ID)
	s.Require().NoError(err)
	s.ctx = requestcontext.WithTime(s.ctx, testutil.FixedTime.Add(time.Minute))
	legalReq, err := s.create(models.KindDelete, s.e2, "", f2.ID)
	s.Require().NoError(err)
	s.ctx = requestcontext.WithTime(s.ctx, testutil.FixedTime.Add(2*time.Minute))
	hodReq, err := s.create(models.KindTransfer, s.hodD1, "u9", f3.ID)
	s.Require().NoError(err)
	_, err = s.resolve(legalReq, models.ActionDeny, s.hodD2, "keep it")
	s.Require().NoError(err)

	s.Run("employee", func() {
		view, err := s.service.ListDashboard(s.ctx, s.e1.Handle)
		s.Require().NoError(err)
		s.Require().Len(view.Sent, 1)
		s.Equal(older.ID, view.Sent[0].ID)
		s.Empty(view.AwaitingMyApproval)
		s.Empty(view.AuditLog)
	})

	s.Run("hod sees own department employees only", func() {
		view, err := s.service.ListDashboard(s.ctx, s.hodD1.Handle)
		s.Require().NoError(err)
		s.Require().Len(view.Sent, 1)
		s.Equal(hodReq.ID, view.Sent[0].ID)
		s.Require().Len(view.AwaitingMyApproval, 1)
		s.Equal(older.ID, view.AwaitingMyApproval[0].ID)
		s.Empty(view.AuditLog)
	})

	s.Run("admin sees pending employee and hod requests and the audit log", func() {
		view, err := s.service.ListDashboard(s.ctx, s.admin.Handle)
		s.Require().NoError(err)
		s.Empty(view.Sent)
		s.Require().Len(view.AwaitingMyApproval, 2)
		s.Equal(hodReq.ID, view.AwaitingMyApproval[0].ID, "newest first")
		s.Equal(older.ID, view.AwaitingMyApproval[1].ID)
		s.Require().Len(view.AuditLog, 1)
		s.Equal(legalReq.ID, view.AuditLog[0].ID)
	})

	s.Run("unknown viewer", func() {
		_, err := s.service.ListDashboard(s.ctx, "ghost")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}
