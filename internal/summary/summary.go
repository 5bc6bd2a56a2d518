// Package summary computes the dashboard statistics rendered to the Summary
// tab and the stats command.
package summary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jobtrack/jobtrack-cli/internal/model"
)

// barWidth is the width of the widest stage bar in the breakdown.
const barWidth = 20

// MonthCount is one row of the monthly application histogram.
type MonthCount struct {
	Month string // YYYY-MM
	Count int
}

// StageCount is one row of the stage breakdown, in pipeline order.
type StageCount struct {
	Stage model.Stage
	Count int
	Bar   string
}

// Stats summarizes the tracked application set.
type Stats struct {
	Total          int
	Active         int
	InterviewRate  float64
	OfferRate      float64
	RejectionRate  float64
	ByStage        []StageCount
	MonthlyApplied []MonthCount
}

// Compute derives Stats from the full application set. Offer counts as
// terminal for the active-pipeline number, and as interviewed for the
// interview rate.
func Compute(apps []model.Application) Stats {
	s := Stats{Total: len(apps)}

	counts := make(map[model.Stage]int)
	monthly := make(map[string]int)
	var terminal, offers, rejected, interviewed int
	for _, app := range apps {
		counts[app.Stage]++
		switch app.Stage {
		case model.StageOffer:
			terminal++
			offers++
			interviewed++
		case model.StageRejected:
			terminal++
			rejected++
		case model.StageWithdrawn:
			terminal++
		case model.StageInterviewed:
			interviewed++
		}
		if len(app.DateApplied) >= 7 {
			monthly[app.DateApplied[:7]]++
		}
	}
	s.Active = s.Total - terminal

	if s.Total > 0 {
		s.InterviewRate = float64(interviewed) / float64(s.Total) * 100
		s.OfferRate = float64(offers) / float64(s.Total) * 100
		s.RejectionRate = float64(rejected) / float64(s.Total) * 100
	}

	maxCount := 1
	for _, n := range counts {
		if n > maxCount {
			maxCount = n
		}
	}
	for _, stage := range model.AllStages() {
		n := counts[stage]
		s.ByStage = append(s.ByStage, StageCount{
			Stage: stage,
			Count: n,
			Bar:   strings.Repeat("█", n*barWidth/maxCount),
		})
	}

	months := make([]string, 0, len(monthly))
	for m := range monthly {
		months = append(months, m)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	if len(months) > 12 {
		months = months[:12]
	}
	for _, m := range months {
		s.MonthlyApplied = append(s.MonthlyApplied, MonthCount{Month: m, Count: monthly[m]})
	}
	return s
}

// Percent formats a rate for display.
func Percent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate)
}
