package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobtrack/jobtrack-cli/internal/model"
)

func app(stage model.Stage, dateApplied string) model.Application {
	return model.Application{Company: "Acme", Role: "Engineer", Stage: stage, DateApplied: dateApplied}
}

func TestCompute_Empty(t *testing.T) {
	s := Compute(nil)
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0, s.Active)
	assert.Zero(t, s.InterviewRate)
	require.Len(t, s.ByStage, len(model.AllStages()))
}

func TestCompute_Rates(t *testing.T) {
	apps := []model.Application{
		app(model.StageApplied, "2026-01-10"),
		app(model.StageInterviewed, "2026-01-12"),
		app(model.StageOffer, "2026-02-01"),
		app(model.StageRejected, "2026-02-05"),
	}
	s := Compute(apps)

	assert.Equal(t, 4, s.Total)
	// Offer, Rejected count as terminal; Applied and Interviewed stay active.
	assert.Equal(t, 2, s.Active)
	// Interviewed + Offer both count as interviewed.
	assert.InDelta(t, 50.0, s.InterviewRate, 1e-9)
	assert.InDelta(t, 25.0, s.OfferRate, 1e-9)
	assert.InDelta(t, 25.0, s.RejectionRate, 1e-9)
}

func TestCompute_StageBreakdownOrderAndBars(t *testing.T) {
	apps := []model.Application{
		app(model.StageApplied, "2026-01-10"),
		app(model.StageApplied, "2026-01-11"),
		app(model.StageOffer, "2026-01-12"),
	}
	s := Compute(apps)

	require.Len(t, s.ByStage, len(model.AllStages()))
	assert.Equal(t, model.StageApplied, s.ByStage[0].Stage)
	assert.Equal(t, 2, s.ByStage[0].Count)
	assert.NotEmpty(t, s.ByStage[0].Bar)
	// The most common stage gets the full-width bar.
	assert.Len(t, []rune(s.ByStage[0].Bar), 20)

	for _, sc := range s.ByStage {
		if sc.Count == 0 {
			assert.Empty(t, sc.Bar, "stage %s", sc.Stage)
		}
	}
}

func TestCompute_MonthlyHistogram(t *testing.T) {
	apps := []model.Application{
		app(model.StageApplied, "2026-01-10"),
		app(model.StageApplied, "2026-01-20"),
		app(model.StageApplied, "2026-02-01"),
		app(model.StageApplied, ""), // undated rows are excluded
	}
	s := Compute(apps)

	require.Len(t, s.MonthlyApplied, 2)
	// Most recent month first.
	assert.Equal(t, "2026-02", s.MonthlyApplied[0].Month)
	assert.Equal(t, 1, s.MonthlyApplied[0].Count)
	assert.Equal(t, "2026-01", s.MonthlyApplied[1].Month)
	assert.Equal(t, 2, s.MonthlyApplied[1].Count)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "33.3%", Percent(100.0/3))
	assert.Equal(t, "0.0%", Percent(0))
}
