package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	actormodels "filegov/internal/actor/models"
	"filegov/internal/actor/policy"
	filesservice "filegov/internal/files/service"
	govmetrics "filegov/internal/governance/metrics"
	"filegov/internal/governance/models"
	"filegov/internal/platform/tracer"
	id "filegov/pkg/domain"
	dErrors "filegov/pkg/domain-errors"
	"filegov/pkg/platform/sentinel"
	"filegov/pkg/requestcontext"
)

// Service is the request state machine. Every transition and its side
// effect run in one StoreTx; notifications go out after commit.
type Service struct {
	requests RequestStore
	files    filesservice.FileStore
	tx       StoreTx
	actors   ActorDirectory
	notifier Notifier
	namer    filesservice.DepartmentNamer
	logger   *slog.Logger
	metrics  *govmetrics.Metrics
	tracer   tracer.Tracer
}

func New(requests RequestStore, files filesservice.FileStore, tx StoreTx, actors ActorDirectory, opts ...Option) *Service {
	cfg := serviceConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	tr := cfg.tracer
	if tr == nil {
		tr = tracer.NewNoop()
	}
	return &Service{
		requests: requests,
		files:    files,
		tx:       tx,
		actors:   actors,
		notifier: cfg.notifier,
		namer:    cfg.namer,
		logger:   logger,
		metrics:  cfg.metrics,
		tracer:   tr,
	}
}

// CreateRequestCommand carries what a sender submits. RecipientHandle is
// only read for transfers.
type CreateRequestCommand struct {
	Kind            models.Kind
	FileIDs         []id.FileID
	SenderHandle    string
	Reason          string
	RecipientHandle string
}

// ResolveCommand carries an approver's decision.
type ResolveCommand struct {
	RequestID      id.RequestID
	Action         models.Action
	ApproverHandle string
	DenialComment  string
}

// CreateRequest records a request. Requests from administrators complete
// immediately with their side effect applied in the same transaction and
// notify nobody; everyone else's wait PENDING and are fanned out.
func (s *Service) CreateRequest(ctx context.Context, cmd CreateRequestCommand) (_ *models.Request, err error) {
	ctx, span := s.tracer.Start(ctx, "governance.create_request",
		tracer.String("kind", string(cmd.Kind)),
		tracer.Int("files", len(cmd.FileIDs)),
	)
	defer func() { span.End(err) }()

	if !cmd.Kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "kind must be TRANSFER or DELETE")
	}
	sender, err := s.resolveSender(ctx, cmd.SenderHandle)
	if err != nil {
		return nil, err
	}
	var recipient *models.Recipient
	if cmd.Kind == models.KindTransfer {
		if recipient, err = s.resolveRecipient(ctx, cmd.RecipientHandle); err != nil {
			return nil, err
		}
	}

	now := requestcontext.Now(ctx)
	req, err := models.NewRequest(id.RequestID(uuid.New()), cmd.Kind, cmd.FileIDs, sender, recipient, cmd.Reason, now)
	if err != nil {
		return nil, err
	}
	auto := policy.IsAutoApprove(sender.Role)
	span.SetAttributes(tracer.String("request_id", req.ID.String()), tracer.Bool("auto_approved", auto))

	err = s.tx.RunInTx(withTxKey(ctx, req.ID.String()), func(ctx context.Context, stores TxStores) error {
		if err := requireLive(ctx, stores.Files, req.FileIDs); err != nil {
			return err
		}
		if auto {
			if err := s.applySideEffect(ctx, stores, req, sender.Handle); err != nil {
				return err
			}
			if err := req.AutoComplete(); err != nil {
				return err
			}
		}
		if err := stores.Requests.Create(ctx, req); err != nil {
			return wrapRequestErr(err, "failed to save request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementCreated(string(req.Kind), string(req.Status))
	}
	s.logger.InfoContext(ctx, "governance request created",
		"event", "request_created",
		"log_type", "audit",
		"request_id", requestcontext.RequestID(ctx),
		"governance_request_id", req.ID.String(),
		"kind", req.Kind,
		"status", req.Status,
		"sender", req.SenderHandle,
		"files", len(req.FileIDs),
	)

	if req.IsPending() {
		s.notify(ctx, "created", req, s.notifyCreated)
	}
	return req, nil
}

// ResolveRequest approves or denies a pending request exactly once. The
// status write is conditional on PENDING, so of two racing resolvers one
// wins and the other gets a conflict.
func (s *Service) ResolveRequest(ctx context.Context, cmd ResolveCommand) (_ *models.Request, err error) {
	ctx, span := s.tracer.Start(ctx, "governance.resolve_request",
		tracer.String("governance_request_id", cmd.RequestID.String()),
		tracer.String("action", string(cmd.Action)),
	)
	defer func() { span.End(err) }()

	if cmd.Action != models.ActionApprove && cmd.Action != models.ActionDeny {
		return nil, dErrors.New(dErrors.CodeValidation, "action must be APPROVE or DENY")
	}
	approver, err := s.actors.FindByHandle(ctx, cmd.ApproverHandle)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve approver")
		}
		// Reported as forbidden once the request itself checks out.
		approver = nil
	}

	now := requestcontext.Now(ctx)
	var resolved *models.Request
	err = s.tx.RunInTx(withTxKey(ctx, cmd.RequestID.String()), func(ctx context.Context, stores TxStores) error {
		req, err := stores.Requests.FindByID(ctx, cmd.RequestID)
		if err != nil {
			return wrapRequestErr(err, "failed to load request")
		}
		if !req.IsPending() {
			return dErrors.New(dErrors.CodeConflict, "request is already "+strings.ToLower(string(req.Status)))
		}
		if !policy.ActorCanApprove(approver, req.SenderRole, req.SenderDepartmentID) {
			return dErrors.New(dErrors.CodeForbidden, "approver cannot resolve this request")
		}

		switch cmd.Action {
		case models.ActionDeny:
			if err := req.Deny(approver.Handle, cmd.DenialComment, now); err != nil {
				return err
			}
		case models.ActionApprove:
			if err := s.applySideEffect(ctx, stores, req, approver.Handle); err != nil {
				return err
			}
			if err := req.Complete(approver.Handle, now); err != nil {
				return err
			}
		}

		if err := stores.Requests.Transition(ctx, req); err != nil {
			return wrapRequestErr(err, "failed to resolve request")
		}
		resolved = req
		return nil
	})
	if err != nil {
		if s.metrics != nil && dErrors.HasCode(err, dErrors.CodeConflict) {
			s.metrics.IncrementResolveConflict()
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementResolved(string(resolved.Kind), string(resolved.Status))
		s.metrics.ObserveTimeToResolve(now.Sub(resolved.CreatedAt).Seconds())
	}
	s.logger.InfoContext(ctx, "governance request resolved",
		"event", "request_resolved",
		"log_type", "audit",
		"request_id", requestcontext.RequestID(ctx),
		"governance_request_id", resolved.ID.String(),
		"kind", resolved.Kind,
		"status", resolved.Status,
		"approver", resolved.ResolvedBy,
	)

	s.notify(ctx, "resolved", resolved, s.notifyResolved)
	return resolved, nil
}

// GetRequest returns one request to its sender, its recipient, anyone who
// may approve it, or an administrator.
func (s *Service) GetRequest(ctx context.Context, requestID id.RequestID, viewerHandle string) (*models.Request, error) {
	viewer, err := s.resolveViewer(ctx, viewerHandle)
	if err != nil {
		return nil, err
	}
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, wrapRequestErr(err, "failed to load request")
	}
	if !canView(viewer, req) {
		return nil, dErrors.New(dErrors.CodeForbidden, "request is not visible to this actor")
	}
	return req, nil
}

func canView(viewer *actormodels.Actor, req *models.Request) bool {
	switch {
	case viewer.Handle == req.SenderHandle:
		return true
	case req.Recipient != nil && req.Recipient.ActorID == viewer.ID:
		return true
	case policy.CanViewAuditLog(viewer.Role):
		return true
	default:
		return policy.ActorCanApprove(viewer, req.SenderRole, req.SenderDepartmentID)
	}
}

// applySideEffect runs the kind-specific mutation inside the caller's
// transaction. Files that stopped being live since creation make it fail
// with a conflict, which leaves the request PENDING.
func (s *Service) applySideEffect(ctx context.Context, stores TxStores, req *models.Request, approvedBy string) error {
	switch req.Kind {
	case models.KindTransfer:
		if req.Recipient == nil {
			return dErrors.New(dErrors.CodeInvariantViolation, "transfer request has no recipient")
		}
		err := stores.Files.UpdateOwner(ctx, req.FileIDs, req.Recipient.ActorID, requestcontext.Now(ctx))
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeConflict, "one or more files are no longer live")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to transfer files")
		}
		return nil
	case models.KindDelete:
		lifecycle := filesservice.NewLifecycle(stores.Files, stores.Trash, s.namer, s.logger)
		_, err := lifecycle.MoveToTrash(ctx, filesservice.MoveInput{
			FileIDs:      req.FileIDs,
			DeletedBy:    req.SenderHandle,
			ApprovedBy:   approvedBy,
			DepartmentID: req.SenderDepartmentID,
		})
		return err
	default:
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown request kind")
	}
}

func requireLive(ctx context.Context, files filesservice.FileStore, fileIDs []id.FileID) error {
	for _, fileID := range fileIDs {
		if _, err := files.FindFile(ctx, fileID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("file %s is not live", fileID))
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load file")
		}
	}
	return nil
}

func (s *Service) resolveSender(ctx context.Context, handle string) (*actormodels.Actor, error) {
	if strings.TrimSpace(handle) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "sender is required")
	}
	sender, err := s.actors.FindByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "sender cannot be resolved")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve sender")
	}
	if !sender.Active {
		return nil, dErrors.New(dErrors.CodeValidation, "sender is inactive")
	}
	return sender, nil
}

func (s *Service) resolveRecipient(ctx context.Context, handle string) (*models.Recipient, error) {
	if strings.TrimSpace(handle) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "transfer requires a recipient")
	}
	actor, err := s.actors.FindByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "recipient cannot be resolved")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve recipient")
	}
	if !actor.Active {
		return nil, dErrors.New(dErrors.CodeValidation, "recipient is inactive")
	}
	return &models.Recipient{
		ActorID:     actor.ID,
		Handle:      actor.Handle,
		DisplayName: actor.DisplayName,
	}, nil
}

func (s *Service) resolveViewer(ctx context.Context, handle string) (*actormodels.Actor, error) {
	viewer, err := s.actors.FindByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeForbidden, "actor is not recognised")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve actor")
	}
	if !viewer.Active {
		return nil, dErrors.New(dErrors.CodeForbidden, "actor is inactive")
	}
	return viewer, nil
}

func (s *Service) notifyCreated(ctx context.Context, req *models.Request) error {
	return s.notifier.RequestCreated(ctx, req)
}

func (s *Service) notifyResolved(ctx context.Context, req *models.Request) error {
	return s.notifier.RequestResolved(ctx, req)
}

// notify runs a fan-out and swallows its failure.
func (s *Service) notify(ctx context.Context, trigger string, req *models.Request, fn func(context.Context, *models.Request) error) {
	if s.notifier == nil {
		return
	}
	if err := fn(ctx, req); err != nil {
		s.logger.WarnContext(ctx, "notification fan-out failed",
			"trigger", trigger,
			"governance_request_id", req.ID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		if s.metrics != nil {
			s.metrics.IncrementNotifyFailure(trigger)
		}
	}
}
