package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bytefield-ai/chronicle/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetEpisode_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, title, channel_id, created_at, updated_at FROM episodes WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetEpisode(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "episode not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_EnsureEpisode(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO episodes`).
		WithArgs("ep-1", "Title", "chan-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.EnsureEpisode(context.Background(), model.Episode{ID: "ep-1", Title: "Title", ChannelID: "chan-1"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "ep-1", "chan-1", "queued", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "ep-1", "chan-1")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("failed", pgxmock.AnyArg(), "no-such-run").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRunStatus(context.Background(), "no-such-run", model.RunStatusFailed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteStage(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE run_stages SET status`).
		WithArgs("complete", pgxmock.AnyArg(), "stage-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteStage(context.Background(), "stage-1", &model.StageResult{
		Name:   "mining",
		Status: model.StageStatusComplete,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FetchChannelHistory(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT c.id, c.episode_id, c.text, c.claim_type, c.tier`).
		WithArgs("chan-1", 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "episode_id", "text", "claim_type", "tier"}).
			AddRow("c1", "ep-1", "dopamine is a reward molecule", "factual", "A"))
	mock.ExpectQuery(`SELECT DISTINCT ON \(j.normalized_term\)`).
		WithArgs("chan-1", 5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "term", "definition", "domain"}).
			AddRow("j1", "tonic dopamine", "baseline level", "neuroscience"))

	history, err := s.FetchChannelHistory(context.Background(), "chan-1", 10, 5)
	require.NoError(t, err)
	require.Len(t, history.Claims, 1)
	assert.Equal(t, "factual", history.Claims[0].Topic)
	require.Len(t, history.Jargon, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
