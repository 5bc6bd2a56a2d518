package model

import "time"

// CandidateEmail is an immutable candidate message pulled from the email
// source. ID is stable and unique per source message.
type CandidateEmail struct {
	ID      string    `json:"id"`
	Subject string    `json:"subject"`
	From    string    `json:"from"`
	Date    time.Time `json:"date"`
	Body    string    `json:"body"`
}

// ExtractedRecord is a structured application event produced by the rule
// extractor or the AI classifier.
type ExtractedRecord struct {
	Company      string  `json:"company"`
	Role         string  `json:"role"`
	Stage        Stage   `json:"stage"`
	OccurredDate string  `json:"date,omitempty"` // ISO date, may be empty
	Notes        string  `json:"notes,omitempty"`
	IsInternship bool    `json:"is_internship"`
	Confidence   float64 `json:"confidence,omitempty"`
}

// Disposition records the terminal outcome for a processed email ID.
type Disposition string

const (
	// DispositionSkipForever means the email will never be reprocessed:
	// either the pre-filter rejected it or the AI returned a final answer.
	DispositionSkipForever Disposition = "skip_forever"

	// DispositionRetryPending means the AI call failed transiently and the
	// email should be attempted again on a future run.
	DispositionRetryPending Disposition = "retry_pending"
)

// ClassifyStatus is the outcome category of a single AI classification call.
type ClassifyStatus string

const (
	ClassifySuccess       ClassifyStatus = "success"
	ClassifyQuota         ClassifyStatus = "quota"
	ClassifyRateLimitFail ClassifyStatus = "rate_limit_fail"
	ClassifyError         ClassifyStatus = "error"
)
