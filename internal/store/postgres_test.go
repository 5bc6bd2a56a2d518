package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobtrack/jobtrack-cli/internal/model"
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

func TestPostgresStore_GetApplications(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	notes := "note"

	mock.ExpectQuery(`SELECT id, company, role, stage, type, date_applied, last_updated, notes`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "company", "role", "stage", "type", "date_applied", "last_updated", "notes"}).
			AddRow("a1", "Stripe", "Engineer", model.Stage("Applied"), model.AppType("Full-time"), "2026-03-01", now, &notes).
			AddRow("a2", "Meta", "Analyst", model.Stage("Offer"), model.AppType("Internship"), "2026-02-01", now.Add(-time.Hour), (*string)(nil)))

	apps, err := s.GetApplications(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "Stripe", apps[0].Company)
	assert.Equal(t, "note", apps[0].Notes)
	assert.Empty(t, apps[1].Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertApplication_GeneratesID(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO applications`).
		WithArgs(pgxmock.AnyArg(), "Stripe", "Engineer", "Applied", "Full-time", "2026-03-01", pgxmock.AnyArg(), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.InsertApplication(context.Background(), model.Application{
		Company:     "Stripe",
		Role:        "Engineer",
		Stage:       model.StageApplied,
		Type:        model.TypeFullTime,
		DateApplied: "2026-03-01",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateApplication_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE applications SET stage`).
		WithArgs("Offer", "congrats", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateApplication(context.Background(), "missing", model.StageOffer, "congrats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "application not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RenameApplication(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE applications SET company`).
		WithArgs("Stripe", "Platform Engineer", pgxmock.AnyArg(), "a1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.RenameApplication(context.Background(), "a1", "Stripe", "Platform Engineer")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteApplication(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM applications`).
		WithArgs("a1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.DeleteApplication(context.Background(), "a1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SkipForeverIDs(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT email_id FROM processed_emails`).
		WithArgs("skip_forever").
		WillReturnRows(pgxmock.NewRows([]string{"email_id"}).AddRow("e1").AddRow("e2"))

	ids, err := s.SkipForeverIDs(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, "e1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkDisposition_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO processed_emails .+ ON CONFLICT`).
		WithArgs("e1", "retry_pending", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.MarkDisposition(context.Background(), "e1", model.DispositionRetryPending)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DailyCallCount_MissingDateIsZero(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT call_count FROM ai_daily_usage`).
		WithArgs("2026-03-15").
		WillReturnError(pgx.ErrNoRows)

	count, err := s.DailyCallCount(context.Background(), "2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_IncrementDailyCalls(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`INSERT INTO ai_daily_usage .+ RETURNING call_count`).
		WithArgs("2026-03-15").
		WillReturnRows(pgxmock.NewRows([]string{"call_count"}).AddRow(7))

	count, err := s.IncrementDailyCalls(context.Background(), "2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LogSyncAndRecentSyncs(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ts := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO sync_log`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), 10, 2, 1, 3, "reject: job alert x3", true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.LogSync(context.Background(), model.SyncSummary{
		Timestamp:       ts,
		EmailsScanned:   10,
		NewApplications: 2,
		StagesUpdated:   1,
		EmailsSkipped:   3,
		SkipReasons:     "reject: job alert x3",
		InitialRun:      true,
	})
	require.NoError(t, err)

	reasons := "reject: job alert x3"
	mock.ExpectQuery(`SELECT timestamp, emails_scanned`).
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows([]string{"timestamp", "emails_scanned", "new_applications", "statuses_updated", "emails_skipped", "skip_reasons", "is_initial_run"}).
			AddRow(ts, 10, 2, 1, 3, &reasons, true))

	out, err := s.RecentSyncs(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 10, out[0].EmailsScanned)
	assert.True(t, out[0].InitialRun)
	assert.NoError(t, mock.ExpectationsWereMet())
}
