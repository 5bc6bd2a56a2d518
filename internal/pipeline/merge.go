package pipeline

import (
	"github.com/jobtrack/jobtrack-cli/internal/model"
	"github.com/jobtrack/jobtrack-cli/internal/normalize"
)

// Matcher decides whether an extracted record refers to an application we
// already track.
type Matcher struct {
	// RoleOverlapThreshold is the minimum token overlap for two roles with
	// different keys to be treated as the same opening.
	RoleOverlapThreshold float64
}

// FindMatch scans the existing applications for the same company and role.
// Company must match exactly by key; roles match by key equality or token
// overlap. First match wins, so callers pass the list ordered most recently
// updated first.
func (m Matcher) FindMatch(company, role string, existing []model.Application) *model.Application {
	companyKey := normalize.CompanyKey(company)
	roleKey := normalize.RoleKey(role)

	for i := range existing {
		app := &existing[i]
		if normalize.CompanyKey(app.Company) != companyKey {
			continue
		}
		if normalize.RoleKey(app.Role) == roleKey {
			return app
		}
		if normalize.RoleTokenOverlap(role, app.Role) >= m.RoleOverlapThreshold {
			return app
		}
	}
	return nil
}

// ShouldUpgradeStage reports whether incoming should replace current.
// Terminal stages always apply, even over an Offer; Offer blocks every
// non-terminal incoming stage; otherwise only strict progress wins.
func ShouldUpgradeStage(current, incoming model.Stage) bool {
	if incoming.Terminal() {
		return true
	}
	if current == model.StageOffer && incoming != model.StageWithdrawn {
		return false
	}
	return incoming.Priority() > current.Priority()
}

// MergeAction says what the orchestrator must do with a decision.
type MergeAction int

const (
	// MergeInsert creates a new application row.
	MergeInsert MergeAction = iota
	// MergeUpdate rewrites stage and notes on an existing row.
	MergeUpdate
)

// MergeDecision is the resolved outcome of merging one extracted record into
// the tracked set.
type MergeDecision struct {
	Action MergeAction

	// MatchID is set for MergeUpdate.
	MatchID string
	Stage   model.Stage
	Notes   string

	// App is the new row for MergeInsert.
	App model.Application

	// StageChanged reports whether an update actually advanced the stage
	// (as opposed to only accumulating notes).
	StageChanged bool
}

// Merge resolves an extracted record against the existing set. It never
// mutates existing; the caller applies the decision to the store.
func (m Matcher) Merge(rec model.ExtractedRecord, existing []model.Application, fallbackDate string) MergeDecision {
	company := normalize.Company(rec.Company)

	match := m.FindMatch(company, rec.Role, existing)
	if match == nil {
		appType := model.TypeFullTime
		if rec.IsInternship {
			appType = model.TypeInternship
		}
		date := rec.OccurredDate
		if date == "" {
			date = fallbackDate
		}
		return MergeDecision{
			Action: MergeInsert,
			App: model.Application{
				Company:     company,
				Role:        rec.Role,
				Stage:       rec.Stage,
				Type:        appType,
				DateApplied: date,
				Notes:       rec.Notes,
			},
		}
	}

	if ShouldUpgradeStage(match.Stage, rec.Stage) {
		return MergeDecision{
			Action:       MergeUpdate,
			MatchID:      match.ID,
			Stage:        rec.Stage,
			Notes:        rec.Notes,
			StageChanged: match.Stage != rec.Stage,
		}
	}

	// Not an upgrade: keep the stage, accumulate the notes.
	notes := rec.Notes
	if match.Notes != "" && notes != "" {
		notes = match.Notes + "; " + notes
	} else if match.Notes != "" {
		notes = match.Notes
	}
	return MergeDecision{
		Action:  MergeUpdate,
		MatchID: match.ID,
		Stage:   match.Stage,
		Notes:   notes,
	}
}
