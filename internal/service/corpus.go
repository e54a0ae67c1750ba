package service

import (
	"context"
	"time"

	"github.com/eduquery-ai/eduquery/internal/domain"
	"github.com/eduquery-ai/eduquery/internal/pagination"
)

// CorpusRepositoryInterface defines the repository interface for the
// reference question corpus
type CorpusRepositoryInterface interface {
	Create(ctx context.Context, q *domain.Question) error
	GetByID(ctx context.Context, id string) (*domain.Question, error)
	FetchCorpus(ctx context.Context) ([]*domain.Question, error)
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*CorpusPageResult, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
	Delete(ctx context.Context, id string) error
}

// CorpusEntry is a corpus listing row. Embedded reports whether the entry's
// embedding job has completed, i.e. whether it participates in scoring yet.
type CorpusEntry struct {
	ID        string
	Text      string
	Embedded  bool
	CreatedAt time.Time
}

type CorpusPageResult struct {
	Items      []*CorpusEntry
	NextCursor string
	HasMore    bool
}

// CorpusService manages the reference question corpus.
type CorpusService struct {
	txRunner TxRunner
	repo     CorpusRepositoryInterface
	uuidGen  UUIDGenerator
}

func NewCorpusService(txRunner TxRunner, repo CorpusRepositoryInterface) *CorpusService {
	return NewCorpusServiceWithUUIDGen(txRunner, repo, &DefaultUUIDGenerator{})
}

func NewCorpusServiceWithUUIDGen(txRunner TxRunner, repo CorpusRepositoryInterface, uuidGen UUIDGenerator) *CorpusService {
	return &CorpusService{
		txRunner: txRunner,
		repo:     repo,
		uuidGen:  uuidGen,
	}
}

// Add inserts a reference question and queues its embedding job in one
// transaction. The entry joins the scoring corpus once the job completes.
func (s *CorpusService) Add(ctx context.Context, text string) (*domain.Question, error) {
	if text == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "question text is required")
	}

	now := time.Now().UTC()
	question := domain.NewQuestion(s.uuidGen.NewString(), text, domain.QuestionSourceCorpus, now)
	if err := domain.ValidateQuestion(question); err != nil {
		return nil, err
	}

	job := domain.NewEmbeddingJob(s.uuidGen.NewString(), question.ID, "", now)

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Corpus().Create(ctx, question); err != nil {
			return err
		}
		return repos.EmbeddingJobs().Create(ctx, job)
	})
	if err != nil {
		return nil, err
	}

	return question, nil
}

func (s *CorpusService) List(ctx context.Context, cursorStr string, limit int) (*CorpusPageResult, error) {
	cursor, err := pagination.DecodeCursor(cursorStr)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid cursor")
	}
	return s.repo.ListWithCursor(ctx, cursor, pagination.ClampLimit(limit))
}

func (s *CorpusService) Get(ctx context.Context, id string) (*domain.Question, error) {
	if id == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "question ID is required")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *CorpusService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "question ID is required")
	}
	return s.repo.Delete(ctx, id)
}
