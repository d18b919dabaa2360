package dispatch

//go:generate mockgen -source=dispatcher.go -destination=mocks/dispatcher_mock.go -package=mocks Dispatcher

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"filegov/internal/notification/dispatch/mocks"
	"filegov/internal/notification/models"
	"filegov/internal/notification/store"
	id "filegov/pkg/domain"
	"filegov/pkg/testutil"
)

type WorkerSuite struct {
	suite.Suite
	ctx        context.Context
	ctrl       *gomock.Controller
	dispatcher *mocks.MockDispatcher
	outbox     *store.InMemoryStore
	worker     *Worker
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.dispatcher = mocks.NewMockDispatcher(s.ctrl)
	s.dispatcher.EXPECT().Name().Return("mock").AnyTimes()
	s.outbox = store.NewInMemory()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.worker = NewWorker(s.outbox, s.dispatcher, WithBatchSize(10), WithLogger(logger))
}

func (s *WorkerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *WorkerSuite) seed(n int) []*models.Entry {
	entries := make([]*models.Entry, n)
	for i := range entries {
		entries[i] = &models.Entry{
			ID:          id.NotificationID(uuid.New()),
			RecipientID: id.ActorID(uuid.New()),
			Category:    models.CategoryTransferRequest,
			RequestID:   id.RequestID(uuid.New()),
			CreatedAt:   testutil.FixedTime,
		}
	}
	s.Require().NoError(s.outbox.CreateBatch(s.ctx, entries))
	return entries
}

func (s *WorkerSuite) pending() int64 {
	n, err := s.outbox.CountUndispatched(s.ctx)
	s.Require().NoError(err)
	return n
}

func (s *WorkerSuite) TestPollDispatchesInOrderAndMarks() {
	entries := s.seed(3)
	gomock.InOrder(
		s.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Cond(func(e any) bool { return e.(*models.Entry).ID == entries[0].ID })).Return(nil),
		s.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Cond(func(e any) bool { return e.(*models.Entry).ID == entries[1].ID })).Return(nil),
		s.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Cond(func(e any) bool { return e.(*models.Entry).ID == entries[2].ID })).Return(nil),
	)

	s.Equal(3, s.worker.Poll(s.ctx))
	s.Zero(s.pending())
}

func (s *WorkerSuite) TestFailedEntryStaysQueued() {
	entries := s.seed(2)
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e *models.Entry) error {
		if e.ID == entries[0].ID {
			return errors.New("broker unavailable")
		}
		return nil
	}).Times(2)

	s.Equal(1, s.worker.Poll(s.ctx))
	s.Equal(int64(1), s.pending())

	s.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil)
	s.Equal(1, s.worker.Poll(s.ctx), "the failed entry is retried on the next poll")
	s.Zero(s.pending())
}

func (s *WorkerSuite) TestEmptyOutboxDispatchesNothing() {
	s.Zero(s.worker.Poll(s.ctx))
}

func (s *WorkerSuite) TestRunDrainsOnShutdown() {
	s.seed(2)
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	w := NewWorker(s.outbox, s.dispatcher, WithPollInterval(time.Hour), WithLogger(s.worker.logger))

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	s.NoError(w.Run(ctx))
	s.Zero(s.pending())
}
