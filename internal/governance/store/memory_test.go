package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	actormodels "filegov/internal/actor/models"
	"filegov/internal/governance/models"
	id "filegov/pkg/domain"
	"filegov/pkg/platform/sentinel"
	"filegov/pkg/testutil"
)

type InMemoryStoreSuite struct {
	suite.Suite
	ctx    context.Context
	store  *InMemoryStore
	sender *actormodels.Actor
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
	s.sender = testutil.NewActorBuilder("emp").Build()
}

func (s *InMemoryStoreSuite) newRequest(at time.Time) *models.Request {
	req, err := models.NewRequest(id.RequestID(uuid.New()), models.KindDelete, []id.FileID{testutil.TestIDs.FileID1}, s.sender, nil, "stale", at)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, req))
	return req
}

func (s *InMemoryStoreSuite) TestCreateAndFind() {
	req := s.newRequest(testutil.FixedTime)

	got, err := s.store.FindByID(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(req, got)

	s.ErrorIs(s.store.Create(s.ctx, req), sentinel.ErrAlreadyUsed)

	_, err = s.store.FindByID(s.ctx, id.RequestID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestTransitionOnlyFromPending() {
	req := s.newRequest(testutil.FixedTime)

	approved := req.Clone()
	s.Require().NoError(approved.Complete("hod", testutil.FixedTime.Add(time.Minute)))
	s.Require().NoError(s.store.Transition(s.ctx, approved))

	denied := req.Clone()
	s.Require().NoError(denied.Deny("admin", "no", testutil.FixedTime.Add(time.Minute)))
	s.ErrorIs(s.store.Transition(s.ctx, denied), sentinel.ErrConflict)

	got, err := s.store.FindByID(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, got.Status)
}

func (s *InMemoryStoreSuite) TestConcurrentTransitionsHaveOneWinner() {
	req := s.newRequest(testutil.FixedTime)

	result := testutil.RunConcurrent(20, func(idx int) error {
		next := req.Clone()
		if idx%2 == 0 {
			_ = next.Complete("hod", testutil.FixedTime)
		} else {
			_ = next.Deny("hod", "no", testutil.FixedTime)
		}
		return s.store.Transition(s.ctx, next)
	})

	s.Equal(int32(1), result.Successes)
	s.Equal(int32(19), result.Conflicts)
}

func (s *InMemoryStoreSuite) TestListsAreNewestFirst() {
	older := s.newRequest(testutil.FixedTime)
	newer := s.newRequest(testutil.FixedTime.Add(time.Hour))

	sent, err := s.store.ListBySender(s.ctx, s.sender.Handle)
	s.Require().NoError(err)
	s.Require().Len(sent, 2)
	s.Equal(newer.ID, sent[0].ID)
	s.Equal(older.ID, sent[1].ID)

	resolved := older.Clone()
	s.Require().NoError(resolved.Complete("hod", testutil.FixedTime.Add(2*time.Hour)))
	s.Require().NoError(s.store.Transition(s.ctx, resolved))

	pending, err := s.store.ListByStatus(s.ctx, models.StatusPending)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(newer.ID, pending[0].ID)

	done, err := s.store.ListByStatus(s.ctx, models.StatusCompleted, models.StatusDenied)
	s.Require().NoError(err)
	s.Require().Len(done, 1)
	s.Equal(older.ID, done[0].ID)
}

func (s *InMemoryStoreSuite) TestReturnedRequestsAreCopies() {
	req := s.newRequest(testutil.FixedTime)
	got, _ := s.store.FindByID(s.ctx, req.ID)
	got.Status = models.StatusDenied

	again, _ := s.store.FindByID(s.ctx, req.ID)
	s.Equal(models.StatusPending, again.Status)
}
