package service

import (
	"context"

	actormodels "filegov/internal/actor/models"
	"filegov/internal/governance/models"
	id "filegov/pkg/domain"
	dErrors "filegov/pkg/domain-errors"
	"filegov/pkg/platform/sentinel"
)

// RequestStore persists governance requests. Transition is a compare-and-swap:
// it writes only while the stored status is PENDING and otherwise returns
// sentinel.ErrConflict.
type RequestStore interface {
	Create(ctx context.Context, req *models.Request) error
	FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	Transition(ctx context.Context, req *models.Request) error
	ListBySender(ctx context.Context, senderHandle string) ([]*models.Request, error)
	ListByStatus(ctx context.Context, statuses ...models.Status) ([]*models.Request, error)
}

// ActorDirectory resolves senders, recipients and approvers.
type ActorDirectory interface {
	FindByHandle(ctx context.Context, handle string) (*actormodels.Actor, error)
}

// Notifier fans out notifications after a request commits. Errors are
// logged by the caller and never undo the request.
type Notifier interface {
	RequestCreated(ctx context.Context, req *models.Request) error
	RequestResolved(ctx context.Context, req *models.Request) error
}

var requestErrRules = []dErrors.Rule{
	{Target: sentinel.ErrNotFound, Code: dErrors.CodeNotFound, Message: "request not found"},
	{Target: sentinel.ErrConflict, Code: dErrors.CodeConflict, Message: "request is no longer pending"},
}

func wrapRequestErr(err error, action string) error {
	return dErrors.Translate(err, action, requestErrRules...)
}
