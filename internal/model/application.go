package model

import "time"

// AppType distinguishes internship from full-time applications.
type AppType string

const (
	TypeInternship AppType = "Internship"
	TypeFullTime   AppType = "Full-time"
)

// Application is a tracked job application. Identity is the pair of
// normalized company and role matching keys; that pair is unique across the
// tracked set. DateApplied is immutable after creation; LastUpdated is
// monotonically non-decreasing; Notes accumulate across updates.
type Application struct {
	ID          string    `json:"id"`
	Company     string    `json:"company"` // display form
	Role        string    `json:"role"`    // display form
	Stage       Stage     `json:"stage"`
	Type        AppType   `json:"type"`
	DateApplied string    `json:"date_applied"` // ISO date, first seen
	LastUpdated time.Time `json:"last_updated"`
	Notes       string    `json:"notes"`
}

// SyncSummary is the per-run summary written to the sync log.
type SyncSummary struct {
	Timestamp       time.Time `json:"timestamp"`
	EmailsScanned   int       `json:"emails_scanned"`
	NewApplications int       `json:"new_applications"`
	StagesUpdated   int       `json:"statuses_updated"`
	EmailsSkipped   int       `json:"emails_skipped"`
	SkipReasons     string    `json:"skip_reasons,omitempty"`
	InitialRun      bool      `json:"is_initial_run"`
}
