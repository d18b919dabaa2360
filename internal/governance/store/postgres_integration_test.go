//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	actormodels "filegov/internal/actor/models"
	"filegov/internal/governance/models"
	"filegov/internal/governance/store"
	id "filegov/pkg/domain"
	"filegov/pkg/platform/sentinel"
	"filegov/pkg/testutil"
	"filegov/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	alice    *actormodels.Actor
	carol    *models.Recipient
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateAll(ctx))
	s.alice = testutil.NewActorBuilder("alice").Build()
	s.carol = &models.Recipient{ActorID: id.ActorID(uuid.New()), Handle: "carol", DisplayName: "Carol"}
}

func (s *PostgresStoreSuite) newRequest(kind models.Kind, files ...id.FileID) *models.Request {
	var recipient *models.Recipient
	if kind == models.KindTransfer {
		recipient = s.carol
	}
	req, err := models.NewRequest(id.RequestID(uuid.New()), kind, files, s.alice, recipient, "quarter close", testutil.FixedTime)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), req))
	return req
}

func (s *PostgresStoreSuite) TestCreateKeepsFileOrder() {
	ctx := context.Background()
	files := []id.FileID{testutil.TestIDs.FileID3, testutil.TestIDs.FileID1, testutil.TestIDs.FileID2}
	req := s.newRequest(models.KindTransfer, files...)

	got, err := s.store.FindByID(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(files, got.FileIDs)
	s.Equal(models.StatusPending, got.Status)
	s.Require().NotNil(got.Recipient)
	s.Equal("carol", got.Recipient.Handle)
	s.Require().NotNil(got.SenderDepartmentID)
	s.Equal(testutil.TestIDs.DeptFinance, *got.SenderDepartmentID)

	s.ErrorIs(s.store.Create(ctx, req), sentinel.ErrAlreadyUsed)

	_, err = s.store.FindByID(ctx, id.RequestID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestTransitionOnlyFromPending() {
	ctx := context.Background()
	req := s.newRequest(models.KindDelete, testutil.TestIDs.FileID1)

	s.Require().NoError(req.Deny("hod-finance", "keep until audit", testutil.FixedTime.Add(time.Hour)))
	s.Require().NoError(s.store.Transition(ctx, req))

	got, err := s.store.FindByID(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusDenied, got.Status)
	s.Equal("keep until audit", got.DenialComment)
	s.Require().NotNil(got.ResolvedAt)

	again := got.Clone()
	again.Status = models.StatusCompleted
	s.ErrorIs(s.store.Transition(ctx, again), sentinel.ErrConflict)

	ghost := req.Clone()
	ghost.ID = id.RequestID(uuid.New())
	s.ErrorIs(s.store.Transition(ctx, ghost), sentinel.ErrNotFound)
}

// TestConcurrentResolveHasOneWinner races resolvers through row-locked
// transactions; exactly one may move the request out of PENDING.
func (s *PostgresStoreSuite) TestConcurrentResolveHasOneWinner() {
	ctx := context.Background()
	req := s.newRequest(models.KindDelete, testutil.TestIDs.FileID1)

	const goroutines = 20
	var wg sync.WaitGroup
	var winners atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := s.postgres.DB.BeginTx(ctx, nil)
			if err != nil {
				return
			}
			defer tx.Rollback() //nolint:errcheck // no-op after commit
			txStore := store.NewPostgresTx(tx)

			locked, err := txStore.FindByID(ctx, req.ID)
			if err != nil || !locked.IsPending() {
				return
			}
			if err := locked.Complete("admin", testutil.FixedTime.Add(time.Minute)); err != nil {
				return
			}
			if err := txStore.Transition(ctx, locked); err != nil {
				return
			}
			if tx.Commit() == nil {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), winners.Load())
	got, err := s.store.FindByID(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, got.Status)
}

func (s *PostgresStoreSuite) TestListBySenderAndStatus() {
	ctx := context.Background()
	pending := s.newRequest(models.KindDelete, testutil.TestIDs.FileID1)
	done := s.newRequest(models.KindTransfer, testutil.TestIDs.FileID2)
	s.Require().NoError(done.Complete("admin", testutil.FixedTime.Add(time.Hour)))
	s.Require().NoError(s.store.Transition(ctx, done))

	sent, err := s.store.ListBySender(ctx, "alice")
	s.Require().NoError(err)
	s.Len(sent, 2)
	for _, r := range sent {
		s.NotEmpty(r.FileIDs)
	}

	open, err := s.store.ListByStatus(ctx, models.StatusPending)
	s.Require().NoError(err)
	s.Require().Len(open, 1)
	s.Equal(pending.ID, open[0].ID)

	resolved, err := s.store.ListByStatus(ctx, models.StatusCompleted, models.StatusDenied)
	s.Require().NoError(err)
	s.Require().Len(resolved, 1)
	s.Equal(done.ID, resolved[0].ID)

	none, err := s.store.ListBySender(ctx, "nobody")
	s.Require().NoError(err)
	s.Empty(none)
}
