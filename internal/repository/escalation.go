package repository

import (
	"context"
	"errors"
	"time"

	"github.com/eduquery-ai/eduquery/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EscalationRepository struct {
	db dbtx
}

func NewEscalationRepository(pool *pgxpool.Pool) *EscalationRepository {
	return &EscalationRepository{db: pool}
}

func NewEscalationRepositoryWithTx(tx pgx.Tx) *EscalationRepository {
	return &EscalationRepository{db: tx}
}

func (r *EscalationRepository) Create(ctx context.Context, e *domain.Escalation) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO escalations (id, question_text, confidence, status, answer, submitted_at, answered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.QuestionText, e.Confidence, e.Status, nullableString(e.Answer), e.SubmittedAt, e.AnsweredAt,
	)
	return err
}

func (r *EscalationRepository) GetByID(ctx context.Context, id string) (*domain.Escalation, error) {
	var e domain.Escalation
	var answer pgtype.Text
	err := r.db.QueryRow(ctx,
		`SELECT id, question_text, confidence, status, answer, submitted_at, answered_at
		 FROM escalations WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.QuestionText, &e.Confidence, &e.Status, &answer, &e.SubmittedAt, &e.AnsweredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEscalationNotFound
		}
		return nil, err
	}
	if answer.Valid {
		e.Answer = answer.String
	}
	return &e, nil
}

// Answer transitions a pending escalation to answered. The status guard in
// the WHERE clause makes the transition single-fire under concurrent
// teachers: the second writer matches zero rows and gets ErrAlreadyAnswered.
func (r *EscalationRepository) Answer(ctx context.Context, id, answer string, answeredAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE escalations
		 SET status = $1, answer = $2, answered_at = $3
		 WHERE id = $4 AND status = $5`,
		domain.EscalationStatusAnswered, answer, answeredAt, id, domain.EscalationStatusPending,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		// Distinguish a missing row from a lost race.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrAlreadyAnswered
	}
	return nil
}

func (r *EscalationRepository) ListByStatus(ctx context.Context, status domain.EscalationStatus) ([]*domain.Escalation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, question_text, confidence, status, answer, submitted_at, answered_at
		 FROM escalations WHERE status = $1 ORDER BY submitted_at DESC, id DESC`,
		status,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEscalationRows(rows)
}

func (r *EscalationRepository) List(ctx context.Context) ([]*domain.Escalation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, question_text, confidence, status, answer, submitted_at, answered_at
		 FROM escalations ORDER BY submitted_at DESC, id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEscalationRows(rows)
}

// ClearAll removes every escalation regardless of status and reports how
// many rows went away. Clearing an empty table is not an error.
func (r *EscalationRepository) ClearAll(ctx context.Context) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM escalations`)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

func scanEscalationRows(rows pgx.Rows) ([]*domain.Escalation, error) {
	var results []*domain.Escalation
	for rows.Next() {
		var e domain.Escalation
		var answer pgtype.Text
		if err := rows.Scan(&e.ID, &e.QuestionText, &e.Confidence, &e.Status, &answer, &e.SubmittedAt, &e.AnsweredAt); err != nil {
			return nil, err
		}
		if answer.Valid {
			e.Answer = answer.String
		}
		results = append(results, &e)
	}
	return results, rows.Err()
}
