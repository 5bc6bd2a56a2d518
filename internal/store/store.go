// Package store persists tracked applications, per-email dispositions, the
// daily AI call counter, and the sync log. The pipeline never branches on
// which backend is active.
package store

import (
	"context"

	"github.com/jobtrack/jobtrack-cli/internal/model"
)

// Store defines the persistence interface for the tracking pipeline.
type Store interface {
	// Applications. GetApplications returns the tracked set ordered by
	// last_updated descending; the merge engine depends on that ordering.
	GetApplications(ctx context.Context) ([]model.Application, error)
	InsertApplication(ctx context.Context, app model.Application) (string, error)
	UpdateApplication(ctx context.Context, id string, stage model.Stage, notes string) error
	RenameApplication(ctx context.Context, id string, company, role string) error
	DeleteApplication(ctx context.Context, id string) error

	// Dispositions. An email ID is in at most one of the two sets.
	SkipForeverIDs(ctx context.Context) (map[string]struct{}, error)
	RetryPendingIDs(ctx context.Context) (map[string]struct{}, error)
	MarkDisposition(ctx context.Context, emailID string, d model.Disposition) error

	// Daily AI quota, keyed by UTC calendar date ("2006-01-02").
	DailyCallCount(ctx context.Context, date string) (int, error)
	IncrementDailyCalls(ctx context.Context, date string) (int, error)

	// Sync log
	LogSync(ctx context.Context, s model.SyncSummary) error
	RecentSyncs(ctx context.Context, limit int) ([]model.SyncSummary, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
