package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	actormodels "filegov/internal/actor/models"
	"filegov/internal/actor/policy"
	govmodels "filegov/internal/governance/models"
	notifymetrics "filegov/internal/notification/metrics"
	"filegov/internal/notification/models"
	id "filegov/pkg/domain"
	dErrors "filegov/pkg/domain-errors"
	"filegov/pkg/platform/sentinel"
	"filegov/pkg/requestcontext"
)

// Store persists notification entries.
type Store interface {
	CreateBatch(ctx context.Context, entries []*models.Entry) error
	FindByID(ctx context.Context, notificationID id.NotificationID) (*models.Entry, error)
	ListByRecipient(ctx context.Context, recipientID id.ActorID, filter models.ListFilter) ([]*models.Entry, error)
	MarkRead(ctx context.Context, notificationID id.NotificationID, at time.Time) (*models.Entry, error)
	CountUnread(ctx context.Context, recipientID id.ActorID) (int, error)
}

// ActorDirectory answers the audience queries behind fan-out.
type ActorDirectory interface {
	FindByHandle(ctx context.Context, handle string) (*actormodels.Actor, error)
	FindByRoles(ctx context.Context, roles []actormodels.Role) ([]*actormodels.Actor, error)
	FindByRoleAndDepartment(ctx context.Context, role actormodels.Role, departmentID id.DepartmentID) ([]*actormodels.Actor, error)
}

// Service writes notification entries when requests are raised or resolved
// and serves each actor's inbox. Delivery to external transports happens
// later, in the dispatch worker.
type Service struct {
	store   Store
	actors  ActorDirectory
	logger  *slog.Logger
	metrics *notifymetrics.Metrics
	clock   func() time.Time
}

func New(store Store, actors ActorDirectory, opts ...Option) *Service {
	cfg := serviceConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		store:   store,
		actors:  actors,
		logger:  logger,
		metrics: cfg.metrics,
		clock:   clock,
	}
}

// RequestCreated tells the approval audience about a pending request. One
// entry per active actor, never the sender, never twice for one actor.
// Completed (auto-approved) requests produce nothing.
func (s *Service) RequestCreated(ctx context.Context, req *govmodels.Request) error {
	if req == nil || !req.IsPending() {
		return nil
	}
	audience := policy.NotificationAudience(req.SenderDepartmentID)
	members, err := s.audienceMembers(ctx, audience)
	if err != nil {
		return err
	}

	category := models.CategoryDeleteRequest
	if req.Kind == govmodels.KindTransfer {
		category = models.CategoryTransferRequest
	}
	roles := audienceRoles(audience)
	now := s.clock()
	entries := make([]*models.Entry, 0, len(members))
	for _, member := range members {
		if member.ID == req.SenderID {
			continue
		}
		entries = append(entries, &models.Entry{
			ID:            id.NotificationID(uuid.New()),
			RecipientID:   member.ID,
			AudienceRoles: roles,
			DepartmentID:  audience.DepartmentID,
			Title:         createdTitle(req.Kind),
			Message:       createdMessage(req),
			Category:      category,
			RequestID:     req.ID,
			CreatedAt:     now,
		})
	}
	return s.save(ctx, req, category, entries)
}

// RequestResolved tells the sender how their request ended.
func (s *Service) RequestResolved(ctx context.Context, req *govmodels.Request) error {
	if req == nil {
		return nil
	}
	var category models.Category
	switch req.Status {
	case govmodels.StatusCompleted:
		category = models.CategoryRequestApproved
	case govmodels.StatusDenied:
		category = models.CategoryRequestDenied
	default:
		return dErrors.New(dErrors.CodeInvariantViolation, "request is still pending")
	}
	entry := &models.Entry{
		ID:          id.NotificationID(uuid.New()),
		RecipientID: req.SenderID,
		Title:       resolvedTitle(req),
		Message:     resolvedMessage(req),
		Category:    category,
		RequestID:   req.ID,
		CreatedAt:   s.clock(),
	}
	return s.save(ctx, req, category, []*models.Entry{entry})
}

func (s *Service) save(ctx context.Context, req *govmodels.Request, category models.Category, entries []*models.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := s.store.CreateBatch(ctx, entries); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store notifications")
	}
	if s.metrics != nil {
		s.metrics.IncrementCreated(string(category), len(entries))
	}
	s.logger.InfoContext(ctx, "notifications created",
		"event", "notifications_created",
		"log_type", "audit",
		"category", string(category),
		"governance_request_id", req.ID.String(),
		"recipients", len(entries),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// audienceMembers resolves the audience to active actors, deduplicated by
// id in first-seen order. An actor matching several clauses appears once.
func (s *Service) audienceMembers(ctx context.Context, audience policy.Audience) ([]*actormodels.Actor, error) {
	global, err := s.actors.FindByRoles(ctx, audience.GlobalRoles)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve notification audience")
	}
	candidates := global
	if audience.HasDepartmentScope() {
		heads, err := s.actors.FindByRoleAndDepartment(ctx, audience.DepartmentRole, *audience.DepartmentID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve notification audience")
		}
		candidates = append(candidates, heads...)
	}

	seen := make(map[id.ActorID]struct{}, len(candidates))
	members := make([]*actormodels.Actor, 0, len(candidates))
	for _, a := range candidates {
		if a == nil || !a.Active {
			continue
		}
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		members = append(members, a)
	}
	return members, nil
}

// ListForActor returns the caller's inbox, newest first.
func (s *Service) ListForActor(ctx context.Context, handle string, unreadOnly bool) ([]*models.Entry, error) {
	actor, err := s.resolveActor(ctx, handle)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListByRecipient(ctx, actor.ID, models.ListFilter{UnreadOnly: unreadOnly})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	return entries, nil
}

// MarkRead marks one of the caller's notifications read. Repeating it is a
// no-op that returns the same entry.
func (s *Service) MarkRead(ctx context.Context, handle string, notificationID id.NotificationID) (*models.Entry, error) {
	actor, err := s.resolveActor(ctx, handle)
	if err != nil {
		return nil, err
	}
	entry, err := s.store.FindByID(ctx, notificationID)
	if err != nil {
		return nil, wrapEntryErr(err, "failed to load notification")
	}
	if !entry.AddressedTo(actor.ID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "notification is addressed to another actor")
	}
	if entry.IsRead {
		return entry, nil
	}
	updated, err := s.store.MarkRead(ctx, notificationID, s.clock())
	if err != nil {
		return nil, wrapEntryErr(err, "failed to mark notification read")
	}
	if s.metrics != nil {
		s.metrics.IncrementRead()
	}
	return updated, nil
}

func (s *Service) UnreadCount(ctx context.Context, handle string) (int, error) {
	actor, err := s.resolveActor(ctx, handle)
	if err != nil {
		return 0, err
	}
	n, err := s.store.CountUnread(ctx, actor.ID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count notifications")
	}
	return n, nil
}

func (s *Service) resolveActor(ctx context.Context, handle string) (*actormodels.Actor, error) {
	actor, err := s.actors.FindByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeForbidden, "actor is not recognised")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve actor")
	}
	if !actor.Active {
		return nil, dErrors.New(dErrors.CodeForbidden, "actor is inactive")
	}
	return actor, nil
}

func wrapEntryErr(err error, action string) error {
	return dErrors.Translate(err, action,
		dErrors.Rule{Target: sentinel.ErrNotFound, Code: dErrors.CodeNotFound, Message: "notification not found"})
}

func audienceRoles(a policy.Audience) []actormodels.Role {
	roles := append([]actormodels.Role(nil), a.GlobalRoles...)
	if a.HasDepartmentScope() {
		roles = append(roles, a.DepartmentRole)
	}
	return roles
}

func kindNoun(k govmodels.Kind) string {
	if k == govmodels.KindTransfer {
		return "transfer"
	}
	return "delete"
}

func createdTitle(k govmodels.Kind) string {
	return "New " + kindNoun(k) + " request"
}

func createdMessage(req *govmodels.Request) string {
	msg := fmt.Sprintf("%s asks to %s %d file(s)", req.SenderHandle, kindNoun(req.Kind), len(req.FileIDs))
	if req.Kind == govmodels.KindTransfer && req.Recipient != nil {
		msg += " to " + req.Recipient.DisplayName
	}
	return msg + ": " + req.Reason
}

func resolvedTitle(req *govmodels.Request) string {
	outcome := "approved"
	if req.Status == govmodels.StatusDenied {
		outcome = "denied"
	}
	return fmt.Sprintf("Your %s request was %s", kindNoun(req.Kind), outcome)
}

func resolvedMessage(req *govmodels.Request) string {
	if req.Status == govmodels.StatusDenied {
		return fmt.Sprintf("%s denied your request: %s", req.ResolvedBy, req.DenialComment)
	}
	return fmt.Sprintf("%s approved your request for %d file(s)", req.ResolvedBy, len(req.FileIDs))
}
