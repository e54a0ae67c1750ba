package repository

import (
	"context"

	"github.com/eduquery-ai/eduquery/internal/domain"
	"github.com/eduquery-ai/eduquery/internal/pagination"
	"github.com/eduquery-ai/eduquery/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository persists routing decisions. The table is append-only:
// there is no update or delete path, matching the history's role as a
// tamper-evident record of what the router decided.
type AuditRepository struct {
	db dbtx
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: pool}
}

func NewAuditRepositoryWithTx(tx pgx.Tx) *AuditRepository {
	return &AuditRepository{db: tx}
}

func (r *AuditRepository) Create(ctx context.Context, rec *domain.AuditRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO audit_log (id, question_text, best_match_id, best_match_text, confidence, decision, answer, escalation_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.QuestionText, nullableString(rec.BestMatchID), nullableString(rec.BestMatchText),
		rec.Confidence, rec.Decision, nullableString(rec.Answer), nullableString(rec.EscalationID), rec.CreatedAt,
	)
	return err
}

func (r *AuditRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.AuditPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, question_text, best_match_id, best_match_text, confidence, decision, answer, escalation_id, created_at
			 FROM audit_log
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, question_text, best_match_id, best_match_text, confidence, decision, answer, escalation_id, created_at
			 FROM audit_log
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.AuditRecord
	for rows.Next() {
		rec, err := scanAuditRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
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

	return &service.AuditPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func scanAuditRow(rows pgx.Rows) (*domain.AuditRecord, error) {
	var rec domain.AuditRecord
	var bestMatchID, bestMatchText, answer, escalationID pgtype.Text
	if err := rows.Scan(&rec.ID, &rec.QuestionText, &bestMatchID, &bestMatchText,
		&rec.Confidence, &rec.Decision, &answer, &escalationID, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if bestMatchID.Valid {
		rec.BestMatchID = bestMatchID.String
	}
	if bestMatchText.Valid {
		rec.BestMatchText = bestMatchText.String
	}
	if answer.Valid {
		rec.Answer = answer.String
	}
	if escalationID.Valid {
		rec.EscalationID = escalationID.String
	}
	return &rec, nil
}
