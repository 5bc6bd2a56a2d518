package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobtrack/jobtrack-cli/internal/model"
)

func timeForTest(offsetHours int) time.Time {
	return time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC).Add(time.Duration(offsetHours) * time.Hour)
}

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testApplication() model.Application {
	return model.Application{
		Company:     "Stripe",
		Role:        "Backend Engineer",
		Stage:       model.StageApplied,
		Type:        model.TypeFullTime,
		DateApplied: "2026-03-01",
		Notes:       "Extracted from: Thanks for applying",
	}
}

func TestSQLite_InsertAndGetApplications(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	id, err := st.InsertApplication(ctx, testApplication())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	apps, err := st.GetApplications(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, id, apps[0].ID)
	assert.Equal(t, "Stripe", apps[0].Company)
	assert.Equal(t, model.StageApplied, apps[0].Stage)
	assert.Equal(t, "2026-03-01", apps[0].DateApplied)
	assert.False(t, apps[0].LastUpdated.IsZero())
}

func TestSQLite_InsertDuplicateCompanyRole(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.InsertApplication(ctx, testApplication())
	require.NoError(t, err)

	_, err = st.InsertApplication(ctx, testApplication())
	assert.Error(t, err, "company+role is unique")
}

func TestSQLite_UpdateApplication(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	id, err := st.InsertApplication(ctx, testApplication())
	require.NoError(t, err)

	require.NoError(t, st.UpdateApplication(ctx, id, model.StageOffer, "got the offer"))

	apps, err := st.GetApplications(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, model.StageOffer, apps[0].Stage)
	assert.Equal(t, "got the offer", apps[0].Notes)
	assert.Equal(t, "2026-03-01", apps[0].DateApplied, "date applied is immutable")
}

func TestSQLite_UpdateMissingApplication(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.UpdateApplication(context.Background(), "nope", model.StageOffer, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_RenameAndDelete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	id, err := st.InsertApplication(ctx, testApplication())
	require.NoError(t, err)

	require.NoError(t, st.RenameApplication(ctx, id, "Stripe", "Platform Engineer"))
	apps, err := st.GetApplications(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Platform Engineer", apps[0].Role)

	require.NoError(t, st.DeleteApplication(ctx, id))
	apps, err = st.GetApplications(ctx)
	require.NoError(t, err)
	assert.Empty(t, apps)

	assert.Error(t, st.DeleteApplication(ctx, id))
}

func TestSQLite_GetApplications_MostRecentFirst(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.InsertApplication(ctx, testApplication())
	require.NoError(t, err)

	second := testApplication()
	second.Role = "Data Engineer"
	secondID, err := st.InsertApplication(ctx, second)
	require.NoError(t, err)

	// Touching the first row moves it back to the front.
	require.NoError(t, st.UpdateApplication(ctx, first, model.StageInReview, ""))

	apps, err := st.GetApplications(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, first, apps[0].ID)
	assert.Equal(t, secondID, apps[1].ID)
}

func TestSQLite_Dispositions(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.MarkDisposition(ctx, "e1", model.DispositionSkipForever))
	require.NoError(t, st.MarkDisposition(ctx, "e2", model.DispositionRetryPending))

	skip, err := st.SkipForeverIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, skip, "e1")
	assert.NotContains(t, skip, "e2")

	retry, err := st.RetryPendingIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, retry, "e2")
}

func TestSQLite_DispositionUpgrade(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// retry_pending resolves to skip_forever once the AI answers.
	require.NoError(t, st.MarkDisposition(ctx, "e1", model.DispositionRetryPending))
	require.NoError(t, st.MarkDisposition(ctx, "e1", model.DispositionSkipForever))

	skip, err := st.SkipForeverIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, skip, "e1")

	retry, err := st.RetryPendingIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, retry)
}

func TestSQLite_DailyQuota(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	count, err := st.DailyCallCount(ctx, "2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, 0, count, "missing date reads as zero")

	for i := 1; i <= 3; i++ {
		n, err := st.IncrementDailyCalls(ctx, "2026-03-15")
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	other, err := st.DailyCallCount(ctx, "2026-03-16")
	require.NoError(t, err)
	assert.Equal(t, 0, other, "dates are independent")
}

func TestSQLite_SyncLog(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		sum := model.SyncSummary{
			Timestamp:     timeForTest(i),
			EmailsScanned: i,
			InitialRun:    i == 0,
			SkipReasons:   "reject: job board x2",
		}
		require.NoError(t, st.LogSync(ctx, sum))
	}

	out, err := st.RecentSyncs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 2, out[0].EmailsScanned, "most recent first")
	assert.Equal(t, 1, out[1].EmailsScanned)
	assert.Equal(t, "reject: job board x2", out[0].SkipReasons)
	assert.False(t, out[0].InitialRun)
}
