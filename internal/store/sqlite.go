package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/jobtrack/jobtrack-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. This is the default
// local-mode backend.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS applications (
	id           TEXT PRIMARY KEY,
	company      TEXT NOT NULL,
	role         TEXT NOT NULL,
	stage        TEXT NOT NULL,
	type         TEXT NOT NULL,
	date_applied TEXT NOT NULL,
	last_updated DATETIME NOT NULL,
	notes        TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE(company, role)
);

CREATE TABLE IF NOT EXISTS processed_emails (
	email_id     TEXT PRIMARY KEY,
	disposition  TEXT NOT NULL,
	processed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS ai_daily_usage (
	date_utc   TEXT PRIMARY KEY,
	call_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sync_log (
	id               TEXT PRIMARY KEY,
	timestamp        DATETIME NOT NULL,
	emails_scanned   INTEGER NOT NULL DEFAULT 0,
	new_applications INTEGER NOT NULL DEFAULT 0,
	statuses_updated INTEGER NOT NULL DEFAULT 0,
	emails_skipped   INTEGER NOT NULL DEFAULT 0,
	skip_reasons     TEXT,
	is_initial_run   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_applications_company_role ON applications(company, role);
CREATE INDEX IF NOT EXISTS idx_applications_last_updated ON applications(last_updated DESC);
CREATE INDEX IF NOT EXISTS idx_processed_emails_disposition ON processed_emails(disposition);
CREATE INDEX IF NOT EXISTS idx_sync_log_timestamp ON sync_log(timestamp DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetApplications(ctx context.Context) ([]model.Application, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company, role, stage, type, date_applied, last_updated, notes
		 FROM applications ORDER BY last_updated DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list applications")
	}
	defer rows.Close()

	var apps []model.Application
	for rows.Next() {
		var a model.Application
		var notes sql.NullString
		if err := rows.Scan(&a.ID, &a.Company, &a.Role, &a.Stage, &a.Type, &a.DateApplied, &a.LastUpdated, &notes); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan application")
		}
		a.Notes = notes.String
		apps = append(apps, a)
	}
	return apps, eris.Wrap(rows.Err(), "sqlite: list applications iterate")
}

func (s *SQLiteStore) InsertApplication(ctx context.Context, app model.Application) (string, error) {
	id := app.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO applications (id, company, role, stage, type, date_applied, last_updated, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, app.Company, app.Role, string(app.Stage), string(app.Type), app.DateApplied, now, app.Notes,
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert application")
	}
	return id, nil
}

func (s *SQLiteStore) UpdateApplication(ctx context.Context, id string, stage model.Stage, notes string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE applications SET stage = ?, notes = ?, last_updated = ? WHERE id = ?`,
		string(stage), notes, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update application %s", id)
	}
	return checkRowsAffected(res, "application", id)
}

func (s *SQLiteStore) RenameApplication(ctx context.Context, id string, company, role string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE applications SET company = ?, role = ?, last_updated = ? WHERE id = ?`,
		company, role, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: rename application %s", id)
	}
	return checkRowsAffected(res, "application", id)
}

func (s *SQLiteStore) DeleteApplication(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM applications WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete application %s", id)
	}
	return checkRowsAffected(res, "application", id)
}

func (s *SQLiteStore) SkipForeverIDs(ctx context.Context) (map[string]struct{}, error) {
	return s.dispositionIDs(ctx, model.DispositionSkipForever)
}

func (s *SQLiteStore) RetryPendingIDs(ctx context.Context) (map[string]struct{}, error) {
	return s.dispositionIDs(ctx, model.DispositionRetryPending)
}

func (s *SQLiteStore) dispositionIDs(ctx context.Context, d model.Disposition) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email_id FROM processed_emails WHERE disposition = ?`, string(d),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list dispositions")
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan disposition")
		}
		ids[id] = struct{}{}
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: list dispositions iterate")
}

func (s *SQLiteStore) MarkDisposition(ctx context.Context, emailID string, d model.Disposition) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processed_emails (email_id, disposition, processed_at) VALUES (?, ?, ?)
		 ON CONFLICT(email_id) DO UPDATE SET disposition = excluded.disposition, processed_at = excluded.processed_at`,
		emailID, string(d), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: mark disposition %s", emailID)
}

func (s *SQLiteStore) DailyCallCount(ctx context.Context, date string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT call_count FROM ai_daily_usage WHERE date_utc = ?`, date,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: daily call count")
	}
	return count, nil
}

func (s *SQLiteStore) IncrementDailyCalls(ctx context.Context, date string) (int, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ai_daily_usage (date_utc, call_count) VALUES (?, 1)
		 ON CONFLICT(date_utc) DO UPDATE SET call_count = call_count + 1`,
		date,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: increment daily calls")
	}
	return s.DailyCallCount(ctx, date)
}

func (s *SQLiteStore) LogSync(ctx context.Context, sum model.SyncSummary) error {
	initial := 0
	if sum.InitialRun {
		initial = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_log (id, timestamp, emails_scanned, new_applications, statuses_updated, emails_skipped, skip_reasons, is_initial_run)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), sum.Timestamp.UTC(), sum.EmailsScanned, sum.NewApplications,
		sum.StagesUpdated, sum.EmailsSkipped, sum.SkipReasons, initial,
	)
	return eris.Wrap(err, "sqlite: log sync")
}

func (s *SQLiteStore) RecentSyncs(ctx context.Context, limit int) ([]model.SyncSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, emails_scanned, new_applications, statuses_updated, emails_skipped, skip_reasons, is_initial_run
		 FROM sync_log ORDER BY timestamp DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent syncs")
	}
	defer rows.Close()

	var out []model.SyncSummary
	for rows.Next() {
		var sum model.SyncSummary
		var reasons sql.NullString
		var initial int
		if err := rows.Scan(&sum.Timestamp, &sum.EmailsScanned, &sum.NewApplications, &sum.StagesUpdated, &sum.EmailsSkipped, &reasons, &initial); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sync log")
		}
		sum.SkipReasons = reasons.String
		sum.InitialRun = initial == 1
		out = append(out, sum)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: recent syncs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
