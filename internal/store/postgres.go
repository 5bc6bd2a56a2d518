package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/jobtrack/jobtrack-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. Tests substitute a
// pgxmock pool through the same interface.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool. It is the shared-mode backend
// for running the tracker against a hosted database.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot-path store operations.
var preparedStatements = map[string]string{
	"list_applications":  `SELECT id, company, role, stage, type, date_applied, last_updated, notes FROM applications ORDER BY last_updated DESC`,
	"insert_application": `INSERT INTO applications (id, company, role, stage, type, date_applied, last_updated, notes) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"update_application": `UPDATE applications SET stage = $1, notes = $2, last_updated = $3 WHERE id = $4`,
	"mark_disposition":   `INSERT INTO processed_emails (email_id, disposition, processed_at) VALUES ($1, $2, $3) ON CONFLICT (email_id) DO UPDATE SET disposition = EXCLUDED.disposition, processed_at = EXCLUDED.processed_at`,
	"daily_call_count":   `SELECT call_count FROM ai_daily_usage WHERE date_utc = $1`,
	"increment_calls":    `INSERT INTO ai_daily_usage (date_utc, call_count) VALUES ($1, 1) ON CONFLICT (date_utc) DO UPDATE SET call_count = ai_daily_usage.call_count + 1 RETURNING call_count`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS applications (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company      TEXT NOT NULL,
	role         TEXT NOT NULL,
	stage        TEXT NOT NULL,
	type         TEXT NOT NULL,
	date_applied TEXT NOT NULL,
	last_updated TIMESTAMPTZ NOT NULL DEFAULT now(),
	notes        TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (company, role)
);

CREATE TABLE IF NOT EXISTS processed_emails (
	email_id     TEXT PRIMARY KEY,
	disposition  TEXT NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ai_daily_usage (
	date_utc   TEXT PRIMARY KEY,
	call_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sync_log (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	timestamp        TIMESTAMPTZ NOT NULL,
	emails_scanned   INTEGER NOT NULL DEFAULT 0,
	new_applications INTEGER NOT NULL DEFAULT 0,
	statuses_updated INTEGER NOT NULL DEFAULT 0,
	emails_skipped   INTEGER NOT NULL DEFAULT 0,
	skip_reasons     TEXT,
	is_initial_run   BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_applications_company_role ON applications(company, role);
CREATE INDEX IF NOT EXISTS idx_applications_last_updated ON applications(last_updated DESC);
CREATE INDEX IF NOT EXISTS idx_processed_emails_disposition ON processed_emails(disposition);
CREATE INDEX IF NOT EXISTS idx_sync_log_timestamp ON sync_log(timestamp DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetApplications(ctx context.Context) ([]model.Application, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, company, role, stage, type, date_applied, last_updated, notes
		 FROM applications ORDER BY last_updated DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list applications")
	}
	defer rows.Close()

	var apps []model.Application
	for rows.Next() {
		var a model.Application
		var notes *string
		if err := rows.Scan(&a.ID, &a.Company, &a.Role, &a.Stage, &a.Type, &a.DateApplied, &a.LastUpdated, &notes); err != nil {
			return nil, eris.Wrap(err, "postgres: scan application")
		}
		if notes != nil {
			a.Notes = *notes
		}
		apps = append(apps, a)
	}
	return apps, eris.Wrap(rows.Err(), "postgres: list applications iterate")
}

func (s *PostgresStore) InsertApplication(ctx context.Context, app model.Application) (string, error) {
	id := app.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO applications (id, company, role, stage, type, date_applied, last_updated, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, app.Company, app.Role, string(app.Stage), string(app.Type), app.DateApplied, now, app.Notes,
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert application")
	}
	return id, nil
}

func (s *PostgresStore) UpdateApplication(ctx context.Context, id string, stage model.Stage, notes string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE applications SET stage = $1, notes = $2, last_updated = $3 WHERE id = $4`,
		string(stage), notes, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update application %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("application not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) RenameApplication(ctx context.Context, id string, company, role string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE applications SET company = $1, role = $2, last_updated = $3 WHERE id = $4`,
		company, role, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: rename application %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("application not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) DeleteApplication(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete application %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("application not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) SkipForeverIDs(ctx context.Context) (map[string]struct{}, error) {
	return s.dispositionIDs(ctx, model.DispositionSkipForever)
}

func (s *PostgresStore) RetryPendingIDs(ctx context.Context) (map[string]struct{}, error) {
	return s.dispositionIDs(ctx, model.DispositionRetryPending)
}

func (s *PostgresStore) dispositionIDs(ctx context.Context, d model.Disposition) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT email_id FROM processed_emails WHERE disposition = $1`, string(d),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list dispositions")
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan disposition")
		}
		ids[id] = struct{}{}
	}
	return ids, eris.Wrap(rows.Err(), "postgres: list dispositions iterate")
}

func (s *PostgresStore) MarkDisposition(ctx context.Context, emailID string, d model.Disposition) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO processed_emails (email_id, disposition, processed_at) VALUES ($1, $2, $3)
		 ON CONFLICT (email_id) DO UPDATE SET disposition = EXCLUDED.disposition, processed_at = EXCLUDED.processed_at`,
		emailID, string(d), time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: mark disposition %s", emailID)
}

func (s *PostgresStore) DailyCallCount(ctx context.Context, date string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT call_count FROM ai_daily_usage WHERE date_utc = $1`, date,
	).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrap(err, "postgres: daily call count")
	}
	return count, nil
}

func (s *PostgresStore) IncrementDailyCalls(ctx context.Context, date string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`INSERT INTO ai_daily_usage (date_utc, call_count) VALUES ($1, 1)
		 ON CONFLICT (date_utc) DO UPDATE SET call_count = ai_daily_usage.call_count + 1
		 RETURNING call_count`,
		date,
	).Scan(&count)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: increment daily calls")
	}
	return count, nil
}

func (s *PostgresStore) LogSync(ctx context.Context, sum model.SyncSummary) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_log (id, timestamp, emails_scanned, new_applications, statuses_updated, emails_skipped, skip_reasons, is_initial_run)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New().String(), sum.Timestamp.UTC(), sum.EmailsScanned, sum.NewApplications,
		sum.StagesUpdated, sum.EmailsSkipped, sum.SkipReasons, sum.InitialRun,
	)
	return eris.Wrap(err, "postgres: log sync")
}

func (s *PostgresStore) RecentSyncs(ctx context.Context, limit int) ([]model.SyncSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT timestamp, emails_scanned, new_applications, statuses_updated, emails_skipped, skip_reasons, is_initial_run
		 FROM sync_log ORDER BY timestamp DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: recent syncs")
	}
	defer rows.Close()

	var out []model.SyncSummary
	for rows.Next() {
		var sum model.SyncSummary
		var reasons *string
		if err := rows.Scan(&sum.Timestamp, &sum.EmailsScanned, &sum.NewApplications, &sum.StagesUpdated, &sum.EmailsSkipped, &reasons, &sum.InitialRun); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sync log")
		}
		if reasons != nil {
			sum.SkipReasons = *reasons
		}
		out = append(out, sum)
	}
	return out, eris.Wrap(rows.Err(), "postgres: recent syncs iterate")
}
