package service

import (
	"context"
	"time"

	"github.com/eduquery-ai/eduquery/internal/domain"
)

// EscalationRepositoryInterface defines the repository interface for
// escalated questions
type EscalationRepositoryInterface interface {
	Create(ctx context.Context, e *domain.Escalation) error
	GetByID(ctx context.Context, id string) (*domain.Escalation, error)
	Answer(ctx context.Context, id, answer string, answeredAt time.Time) error
	ListByStatus(ctx context.Context, status domain.EscalationStatus) ([]*domain.Escalation, error)
	List(ctx context.Context) ([]*domain.Escalation, error)
	ClearAll(ctx context.Context) (int64, error)
}

// EscalationService handles the teacher side of escalated questions.
type EscalationService struct {
	repo EscalationRepositoryInterface
}

func NewEscalationService(repo EscalationRepositoryInterface) *EscalationService {
	return &EscalationService{repo: repo}
}

// ListPending returns unanswered escalations, newest first.
func (s *EscalationService) ListPending(ctx context.Context) ([]*domain.Escalation, error) {
	return s.repo.ListByStatus(ctx, domain.EscalationStatusPending)
}

func (s *EscalationService) List(ctx context.Context) ([]*domain.Escalation, error) {
	return s.repo.List(ctx)
}

func (s *EscalationService) Get(ctx context.Context, id string) (*domain.Escalation, error) {
	if id == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "escalation ID is required")
	}
	return s.repo.GetByID(ctx, id)
}

// Answer resolves a pending escalation. The first answer wins; any later
// attempt gets ErrAlreadyAnswered and the stored answer stays as it was.
func (s *EscalationService) Answer(ctx context.Context, id, answer string) (*domain.Escalation, error) {
	if id == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "escalation ID is required")
	}
	if answer == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "answer is required")
	}

	if err := s.repo.Answer(ctx, id, answer, time.Now().UTC()); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, id)
}

// ClearAll deletes every escalation. Idempotent: clearing an empty queue
// succeeds with a zero count.
func (s *EscalationService) ClearAll(ctx context.Context) (int64, error) {
	return s.repo.ClearAll(ctx)
}
