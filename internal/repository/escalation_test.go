//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/eduquery-ai/eduquery/internal/domain"
	"github.com/eduquery-ai/eduquery/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscalationRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewEscalationRepository(pool)

	e := domain.NewEscalation(uuid.NewString(), "Why is the sky blue?", 0.42,
		time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, e))

	retrieved, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, retrieved.ID)
	assert.Equal(t, e.QuestionText, retrieved.QuestionText)
	assert.InDelta(t, 0.42, retrieved.Confidence, 0.0001)
	assert.Equal(t, domain.EscalationStatusPending, retrieved.Status)
	assert.Empty(t, retrieved.Answer)
	assert.Nil(t, retrieved.AnsweredAt)
}

func TestEscalationRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewEscalationRepository(pool)

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrEscalationNotFound)
}

func TestEscalationRepository_Answer(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewEscalationRepository(pool)

	e := domain.NewEscalation(uuid.NewString(), "What causes tides?", 0.3,
		time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, e))

	answeredAt := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.Answer(ctx, e.ID, "Gravitational pull of the moon.", answeredAt))

	retrieved, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EscalationStatusAnswered, retrieved.Status)
	assert.Equal(t, "Gravitational pull of the moon.", retrieved.Answer)
	require.NotNil(t, retrieved.AnsweredAt)
	assert.WithinDuration(t, answeredAt, *retrieved.AnsweredAt, time.Second)
}

func TestEscalationRepository_Answer_SecondWriteLoses(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewEscalationRepository(pool)

	e := domain.NewEscalation(uuid.NewString(), "What is inertia?", 0.5,
		time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, e))

	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.Answer(ctx, e.ID, "First answer.", now))

	err := repo.Answer(ctx, e.ID, "Second answer.", now.Add(time.Second))
	assert.ErrorIs(t, err, domain.ErrAlreadyAnswered)

	// First answer survives
	retrieved, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "First answer.", retrieved.Answer)
}

func TestEscalationRepository_Answer_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewEscalationRepository(pool)

	err := repo.Answer(ctx, uuid.NewString(), "answer", time.Now().UTC())
	assert.ErrorIs(t, err, domain.ErrEscalationNotFound)
}

func TestEscalationRepository_ListByStatus(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewEscalationRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond)

	older := domain.NewEscalation(uuid.NewString(), "older question", 0.2, base)
	require.NoError(t, repo.Create(ctx, older))

	newer := domain.NewEscalation(uuid.NewString(), "newer question", 0.4, base.Add(time.Second))
	require.NoError(t, repo.Create(ctx, newer))

	answered := domain.NewEscalation(uuid.NewString(), "answered question", 0.1, base.Add(2*time.Second))
	require.NoError(t, repo.Create(ctx, answered))
	require.NoError(t, repo.Answer(ctx, answered.ID, "done", base.Add(3*time.Second)))

	pending, err := repo.ListByStatus(ctx, domain.EscalationStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	// Newest first
	assert.Equal(t, newer.ID, pending[0].ID)
	assert.Equal(t, older.ID, pending[1].ID)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestEscalationRepository_ClearAll(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewEscalationRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 3; i++ {
		e := domain.NewEscalation(uuid.NewString(), "question", 0.3, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, repo.Create(ctx, e))
	}

	deleted, err := repo.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	// Clearing an empty table reports zero, not an error
	deleted, err = repo.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}
