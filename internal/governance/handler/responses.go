package handler

import (
	"time"

	"filegov/internal/governance/models"
	id "filegov/pkg/domain"
)

type RecipientResponse struct {
	ActorID     string `json:"actor_id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
}

type RequestResponse struct {
	ID                 string             `json:"id"`
	Kind               models.Kind        `json:"kind"`
	FileIDs            []string           `json:"file_ids"`
	SenderHandle       string             `json:"sender_handle"`
	SenderRole         string             `json:"sender_role"`
	SenderDepartmentID string             `json:"sender_department_id,omitempty"`
	Recipient          *RecipientResponse `json:"recipient,omitempty"`
	Reason             string             `json:"reason"`
	Status             models.Status      `json:"status"`
	DenialComment      string             `json:"denial_comment,omitempty"`
	ResolvedBy         string             `json:"resolved_by,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	ResolvedAt         *time.Time         `json:"resolved_at,omitempty"`
}

type DashboardResponse struct {
	Sent               []*RequestResponse `json:"sent"`
	AwaitingMyApproval []*RequestResponse `json:"awaiting_my_approval"`
	AuditLog           []*RequestResponse `json:"audit_log"`
}

func toRequestResponse(r *models.Request) *RequestResponse {
	resp := &RequestResponse{
		ID:            r.ID.String(),
		Kind:          r.Kind,
		FileIDs:       id.FileIDStrings(r.FileIDs),
		SenderHandle:  r.SenderHandle,
		SenderRole:    string(r.SenderRole),
		Reason:        r.Reason,
		Status:        r.Status,
		DenialComment: r.DenialComment,
		ResolvedBy:    r.ResolvedBy,
		CreatedAt:     r.CreatedAt,
		ResolvedAt:    r.ResolvedAt,
	}
	if r.SenderDepartmentID != nil {
		resp.SenderDepartmentID = r.SenderDepartmentID.String()
	}
	if r.Recipient != nil {
		resp.Recipient = &RecipientResponse{
			ActorID:     r.Recipient.ActorID.String(),
			Handle:      r.Recipient.Handle,
			DisplayName: r.Recipient.DisplayName,
		}
	}
	return resp
}

func toRequestList(reqs []*models.Request) []*RequestResponse {
	out := make([]*RequestResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, toRequestResponse(r))
	}
	return out
}

func toDashboardResponse(v *models.DashboardView) *DashboardResponse {
	return &DashboardResponse{
		Sent:               toRequestList(v.Sent),
		AwaitingMyApproval: toRequestList(v.AwaitingMyApproval),
		AuditLog:           toRequestList(v.AuditLog),
	}
}
