package service

import (
	"context"
	"fmt"
	"time"

	"metvil/internal/model"
	"metvil/internal/repository"
)

type AuditEntryResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id,omitempty"`
	UserName  string `json:"user_name,omitempty"`
	Action    string `json:"action"`
	EntityID  string `json:"entity_id"`
	Details   string `json:"details"`
	CreatedAt string `json:"created_at"`
}

type AuditService interface {
	List(ctx context.Context, p model.Principal, action string, page, limit int) ([]AuditEntryResponse, int64, error)
}

type auditService struct {
	audits repository.AuditRepository
}

func NewAuditService(audits repository.AuditRepository) AuditService {
	return &auditService{audits: audits}
}

func (s *auditService) List(ctx context.Context, p model.Principal, action string, page, limit int) ([]AuditEntryResponse, int64, error) {
	if !p.IsApprover() {
		return nil, 0, fmt.Errorf("%w: only approvers may view the audit trail", ErrPermissionDenied)
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}

	entries, total, err := s.audits.List(ctx, action, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit log: %w", err)
	}

	result := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp := AuditEntryResponse{
			ID:        e.ID.String(),
			Action:    e.Action,
			EntityID:  e.EntityID,
			Details:   e.Details,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		}
		if e.UserID != nil {
			resp.UserID = e.UserID.String()
		}
		if e.User != nil {
			resp.UserName = e.User.Name
		}
		result = append(result, resp)
	}
	return result, total, nil
}
