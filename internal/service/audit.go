package service

import (
	"context"

	"github.com/eduquery-ai/eduquery/internal/domain"
	"github.com/eduquery-ai/eduquery/internal/pagination"
)

// AuditRepositoryInterface defines the repository interface for the
// append-only routing audit log
type AuditRepositoryInterface interface {
	Create(ctx context.Context, rec *domain.AuditRecord) error
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*AuditPageResult, error)
}

type AuditPageResult struct {
	Items      []*domain.AuditRecord
	NextCursor string
	HasMore    bool
}

// AuditService exposes read access to the routing history.
type AuditService struct {
	repo AuditRepositoryInterface
}

func NewAuditService(repo AuditRepositoryInterface) *AuditService {
	return &AuditService{repo: repo}
}

// History lists audit records, most recent first.
func (s *AuditService) History(ctx context.Context, cursorStr string, limit int) (*AuditPageResult, error) {
	cursor, err := pagination.DecodeCursor(cursorStr)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid cursor")
	}
	return s.repo.ListWithCursor(ctx, cursor, pagination.ClampLimit(limit))
}
