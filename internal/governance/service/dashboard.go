package service

import (
	"context"

	actormodels "filegov/internal/actor/models"
	"filegov/internal/actor/policy"
	"filegov/internal/governance/models"
	dErrors "filegov/pkg/domain-errors"
)

// ListDashboard assembles one viewer's view of the request log. All three
// lists are newest first and filtered through the same approval policy the
// resolver uses.
func (s *Service) ListDashboard(ctx context.Context, viewerHandle string) (*models.DashboardView, error) {
	viewer, err := s.resolveViewer(ctx, viewerHandle)
	if err != nil {
		return nil, err
	}

	sent, err := s.requests.ListBySender(ctx, viewer.Handle)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sent requests")
	}

	view := &models.DashboardView{
		Sent:               sent,
		AwaitingMyApproval: make([]*models.Request, 0),
		AuditLog:           make([]*models.Request, 0),
	}

	// Employees approve nothing.
	if viewer.Role != actormodels.RoleEmployee {
		pending, err := s.requests.ListByStatus(ctx, models.StatusPending)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending requests")
		}
		for _, req := range pending {
			if policy.ActorCanApprove(viewer, req.SenderRole, req.SenderDepartmentID) {
				view.AwaitingMyApproval = append(view.AwaitingMyApproval, req)
			}
		}
	}

	if policy.CanViewAuditLog(viewer.Role) {
		resolved, err := s.requests.ListByStatus(ctx, models.StatusCompleted, models.StatusDenied)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list resolved requests")
		}
		view.AuditLog = resolved
	}

	return view, nil
}
