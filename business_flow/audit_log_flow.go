// Package businessflow contains the core business logic and use cases for audit inspection
package businessflow

import (
	"context"

	"github.com/subaruffles/backend/app/dto"
	"github.com/subaruffles/backend/models"
	"github.com/subaruffles/backend/repository"
	"github.com/subaruffles/backend/utils"
)

// AuditLogFlow exposes the audit trail to the admin panel
type AuditLogFlow interface {
	List(ctx context.Context, req *dto.AuditLogFilterRequest) (*dto.AuditLogListResponse, error)
}

// AuditLogFlowImpl implements the audit log flow
type AuditLogFlowImpl struct {
	auditRepo repository.AuditLogRepository
}

func NewAuditLogFlow(auditRepo repository.AuditLogRepository) AuditLogFlow {
	return &AuditLogFlowImpl{auditRepo: auditRepo}
}

// List returns one page of audit log entries, newest first
func (s *AuditLogFlowImpl) List(ctx context.Context, req *dto.AuditLogFilterRequest) (*dto.AuditLogListResponse, error) {
	page := 1
	pageSize := 50
	if req != nil {
		if req.Page < 0 {
			return nil, NewBusinessError("INVALID_PAGE", "Page must be at least 1", ErrInvalidPage)
		}
		if req.Page > 0 {
			page = req.Page
		}
		if req.PageSize < 0 || req.PageSize > 100 {
			return nil, NewBusinessError("INVALID_PAGE_SIZE", "Page size must be between 1 and 100", ErrInvalidPageSize)
		}
		if req.PageSize > 0 {
			pageSize = req.PageSize
		}
	}

	filter := models.AuditLogFilter{}
	if req != nil {
		filter.Action = req.Action
		filter.Resource = req.Resource
		filter.Success = req.Success
	}

	total, err := s.auditRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("AUDIT_LOOKUP_FAILED", "Failed to count audit logs", err)
	}

	logs, err := s.auditRepo.ByFilter(ctx, filter, "created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("AUDIT_LOOKUP_FAILED", "Failed to list audit logs", err)
	}

	resp := &dto.AuditLogListResponse{
		Logs: make([]dto.AuditLogDTO, 0, len(logs)),
		Pagination: dto.PaginationResponse{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	for _, l := range logs {
		resp.Logs = append(resp.Logs, dto.AuditLogDTO{
			ID:           l.ID,
			AdminID:      l.AdminID,
			Action:       l.Action,
			Resource:     l.Resource,
			ResourceID:   l.ResourceID,
			Description:  l.Description,
			IPAddress:    l.IPAddress,
			RequestID:    l.RequestID,
			Metadata:     l.Metadata,
			Success:      utils.IsTrue(l.Success),
			ErrorMessage: l.ErrorMessage,
			CreatedAt:    l.CreatedAt,
		})
	}
	return resp, nil
}
