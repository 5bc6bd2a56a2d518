package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jobtrack/jobtrack-cli/internal/config"
	"github.com/jobtrack/jobtrack-cli/internal/model"
	"github.com/jobtrack/jobtrack-cli/internal/store"
)

// progressEvery controls how often the loop logs a progress line.
const progressEvery = 5

// Source yields candidate emails newer than a point in time.
type Source interface {
	FetchSince(ctx context.Context, after time.Time) ([]model.CandidateEmail, error)
}

// Pipeline wires the funnel stages to a store and an email source and runs
// them sequentially. Every state change is persisted per email, so a run
// interrupted by quota or crash resumes cleanly.
type Pipeline struct {
	source     Source
	store      store.Store
	extractor  *Extractor
	classifier *Classifier
	matcher    Matcher
	scan       config.ScanConfig
	quotaLimit int
}

// New creates a Pipeline.
func New(source Source, st store.Store, extractor *Extractor, classifier *Classifier, matcher Matcher, scan config.ScanConfig, quotaLimit int) *Pipeline {
	return &Pipeline{
		source:     source,
		store:      st,
		extractor:  extractor,
		classifier: classifier,
		matcher:    matcher,
		scan:       scan,
		quotaLimit: quotaLimit,
	}
}

// Run executes one sync pass. Initial runs scan months back; incremental runs
// scan days. Quota exhaustion stops the loop cleanly — everything already
// merged stays merged, and unprocessed emails are picked up next run.
func (p *Pipeline) Run(ctx context.Context, initial bool) (*model.SyncSummary, error) {
	start := time.Now().UTC()
	after := p.scanStart(start, initial)

	skipIDs, err := p.store.SkipForeverIDs(ctx)
	if err != nil {
		return nil, err
	}
	retryIDs, err := p.store.RetryPendingIDs(ctx)
	if err != nil {
		return nil, err
	}
	zap.L().Info("sync starting",
		zap.Bool("initial", initial),
		zap.Time("scan_after", after),
		zap.Int("skip_forever", len(skipIDs)),
		zap.Int("retry_pending", len(retryIDs)))

	emails, err := p.source.FetchSince(ctx, after)
	if err != nil {
		return nil, err
	}

	toProcess := make([]model.CandidateEmail, 0, len(emails))
	for _, email := range emails {
		if _, skip := skipIDs[email.ID]; !skip {
			toProcess = append(toProcess, email)
		}
	}
	zap.L().Info("emails fetched",
		zap.Int("scanned", len(emails)),
		zap.Int("to_process", len(toProcess)))

	existing, err := p.store.GetApplications(ctx)
	if err != nil {
		return nil, err
	}

	summary := &model.SyncSummary{
		Timestamp:     start,
		EmailsScanned: len(emails),
		InitialRun:    initial,
	}
	skipReasons := make(map[string]int)

loop:
	for idx, email := range toProcess {
		if stop, qerr := p.quotaExhausted(ctx); qerr != nil {
			return nil, qerr
		} else if stop {
			zap.L().Info("daily AI quota reached, stopping cleanly")
			break
		}

		if reason := PreFilter(email); reason != "" {
			skipReasons[reason]++
			summary.EmailsSkipped++
			if err := p.store.MarkDisposition(ctx, email.ID, model.DispositionSkipForever); err != nil {
				return nil, err
			}
			continue
		}

		rec, ok := p.extractor.TryExtract(email)
		if !ok {
			status, aiRec := p.classifier.Classify(ctx, email)
			switch status {
			case model.ClassifyQuota:
				zap.L().Info("daily AI quota reached mid-run, stopping cleanly")
				break loop
			case model.ClassifyRateLimitFail, model.ClassifyError:
				skipReasons["ai "+string(status)]++
				summary.EmailsSkipped++
				if err := p.store.MarkDisposition(ctx, email.ID, model.DispositionRetryPending); err != nil {
					return nil, err
				}
				continue
			}
			if aiRec == nil {
				// The model says this is not an application; one more rules
				// pass in case the cleaner exposed a pattern, then done with
				// this email forever.
				rec, ok = p.extractor.TryExtract(email)
				if !ok {
					skipReasons["ai: not an application"]++
					summary.EmailsSkipped++
					if err := p.store.MarkDisposition(ctx, email.ID, model.DispositionSkipForever); err != nil {
						return nil, err
					}
					continue
				}
			} else {
				rec = *aiRec
			}
		}

		decision := p.matcher.Merge(rec, existing, email.Date.UTC().Format("2006-01-02"))
		switch decision.Action {
		case MergeInsert:
			if _, err := p.store.InsertApplication(ctx, decision.App); err != nil {
				return nil, err
			}
			summary.NewApplications++
		case MergeUpdate:
			if err := p.store.UpdateApplication(ctx, decision.MatchID, decision.Stage, decision.Notes); err != nil {
				return nil, err
			}
			summary.StagesUpdated++
		}

		if err := p.store.MarkDisposition(ctx, email.ID, model.DispositionSkipForever); err != nil {
			return nil, err
		}

		// Refresh the snapshot so later emails in this run match against
		// rows just written.
		existing, err = p.store.GetApplications(ctx)
		if err != nil {
			return nil, err
		}

		if (idx+1)%progressEvery == 0 {
			zap.L().Info("progress",
				zap.Int("processed", idx+1),
				zap.Int("applications", summary.NewApplications+summary.StagesUpdated))
		}
	}

	summary.SkipReasons = formatSkipReasons(skipReasons)
	if err := p.store.LogSync(ctx, *summary); err != nil {
		return nil, err
	}

	zap.L().Info("sync complete",
		zap.Int("scanned", summary.EmailsScanned),
		zap.Int("new", summary.NewApplications),
		zap.Int("updated", summary.StagesUpdated),
		zap.Int("skipped", summary.EmailsSkipped),
		zap.Duration("took", time.Since(start)))
	return summary, nil
}

// quotaExhausted reports whether today's AI budget is already spent. The
// pipeline checks before each email so a run never starts work it cannot
// classify.
func (p *Pipeline) quotaExhausted(ctx context.Context) (bool, error) {
	today := time.Now().UTC().Format("2006-01-02")
	count, err := p.store.DailyCallCount(ctx, today)
	if err != nil {
		return false, err
	}
	return count >= p.quotaLimit, nil
}

func (p *Pipeline) scanStart(now time.Time, initial bool) time.Time {
	if initial {
		return now.AddDate(0, 0, -p.scan.InitialMonths*30)
	}
	return now.AddDate(0, 0, -p.scan.DailyDays)
}

// formatSkipReasons renders the reason tally as a stable "reason xN" list.
func formatSkipReasons(reasons map[string]int) string {
	if len(reasons) == 0 {
		return ""
	}
	keys := make([]string, 0, len(reasons))
	for k := range reasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s x%d", k, reasons[k]))
	}
	return strings.Join(parts, "; ")
}
