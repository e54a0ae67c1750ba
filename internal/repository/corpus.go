package repository

import (
	"context"
	"errors"

	"github.com/eduquery-ai/eduquery/internal/domain"
	"github.com/eduquery-ai/eduquery/internal/pagination"
	"github.com/eduquery-ai/eduquery/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type CorpusRepository struct {
	db dbtx
}

func NewCorpusRepository(pool *pgxpool.Pool) *CorpusRepository {
	return &CorpusRepository{db: pool}
}

func NewCorpusRepositoryWithTx(tx pgx.Tx) *CorpusRepository {
	return &CorpusRepository{db: tx}
}

func (r *CorpusRepository) Create(ctx context.Context, q *domain.Question) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO reference_questions (id, text, created_at)
		 VALUES ($1, $2, $3)`,
		q.ID, q.Text, q.CreatedAt,
	)
	return err
}

func (r *CorpusRepository) GetByID(ctx context.Context, id string) (*domain.Question, error) {
	var q domain.Question
	var embedding *pgvector.Vector
	err := r.db.QueryRow(ctx,
		`SELECT id, text, embedding, created_at
		 FROM reference_questions WHERE id = $1`,
		id,
	).Scan(&q.ID, &q.Text, &embedding, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrQuestionNotFound
		}
		return nil, err
	}
	q.Source = domain.QuestionSourceCorpus
	if embedding != nil {
		q.Embedding = embedding.Slice()
	}
	return &q, nil
}

// FetchCorpus returns every embedded reference question in insertion order.
// Entries still waiting on their embedding job are excluded so the scoring
// snapshot only contains comparable vectors. The ordering is the corpus
// index order the scorer's tie-break is defined over.
func (r *CorpusRepository) FetchCorpus(ctx context.Context) ([]*domain.Question, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, text, embedding, created_at
		 FROM reference_questions
		 WHERE embedding IS NOT NULL
		 ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []*domain.Question
	for rows.Next() {
		var q domain.Question
		var embedding pgvector.Vector
		if err := rows.Scan(&q.ID, &q.Text, &embedding, &q.CreatedAt); err != nil {
			return nil, err
		}
		q.Source = domain.QuestionSourceCorpus
		q.Embedding = embedding.Slice()
		questions = append(questions, &q)
	}
	return questions, rows.Err()
}

func (r *CorpusRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.CorpusPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, text, embedding IS NOT NULL, created_at
			 FROM reference_questions
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, text, embedding IS NOT NULL, created_at
			 FROM reference_questions
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*service.CorpusEntry
	for rows.Next() {
		var e service.CorpusEntry
		if err := rows.Scan(&e.ID, &e.Text, &e.Embedded, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &service.CorpusPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *CorpusRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE reference_questions SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (r *CorpusRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM reference_questions WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}
