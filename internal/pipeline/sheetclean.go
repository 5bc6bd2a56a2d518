package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jobtrack/jobtrack-cli/internal/model"
	"github.com/jobtrack/jobtrack-cli/internal/normalize"
	"github.com/jobtrack/jobtrack-cli/internal/store"
	"github.com/jobtrack/jobtrack-cli/pkg/anthropic"
)

// auditPrompt asks the model to re-judge a single tracked row from its notes:
// is it a real application event, and are the extracted company and role
// accurate. One row per batch request.
const auditPrompt = `You are a job application tracker auditor. You will be given one tracked
application row that was auto-extracted from an email. The Notes field holds the email content or
snippet that created the row.

A row is NOT a real job application if the Notes suggest it is a job alert or digest, a newsletter
or promotional email from a job board, recruiter cold outreach the user never applied to, or any
automated platform notification that is not a response to a specific submitted application.

Also check Company and Role against the Notes. Extract the actual hiring company, not the job
board or ATS relaying the email. Prefer the full job title from the email, including seniority and
team. When the existing values are accurate, or the Notes cannot identify better ones, keep them.

Return ONLY this JSON, no other text:
{"keep":true/false,"reason":"why removed (only when keep is false)","company":"best company name","role":"best role title"}`

// auditAnswer is the wire shape of one audit verdict.
type auditAnswer struct {
	Keep    bool   `json:"keep"`
	Reason  string `json:"reason"`
	Company string `json:"company"`
	Role    string `json:"role"`
}

// RemovedRow describes one application the audit judged not to be a real
// application.
type RemovedRow struct {
	Company string
	Role    string
	Reason  string
}

// AuditResult summarizes one audit pass.
type AuditResult struct {
	Reviewed int
	Removed  []RemovedRow
	Enriched int
}

// Auditor re-checks the whole tracked set with one AI message batch: rows
// judged not to be applications are deleted, and company/role are corrected
// from the notes where the model found better values.
type Auditor struct {
	provider  anthropic.Client
	store     store.Store
	model     string
	maxTokens int64
	dryRun    bool
}

// NewAuditor creates an Auditor. With dryRun set, verdicts are logged but the
// store is untouched.
func NewAuditor(provider anthropic.Client, st store.Store, modelID string, maxTokens int64, dryRun bool) *Auditor {
	return &Auditor{provider: provider, store: st, model: modelID, maxTokens: maxTokens, dryRun: dryRun}
}

// Run executes one audit pass over every tracked application.
func (a *Auditor) Run(ctx context.Context) (*AuditResult, error) {
	apps, err := a.store.GetApplications(ctx)
	if err != nil {
		return nil, err
	}
	result := &AuditResult{Reviewed: len(apps)}
	if len(apps) == 0 {
		return result, nil
	}

	system := anthropic.BuildCachedSystemBlocks(auditPrompt)
	items := make([]anthropic.BatchRequestItem, 0, len(apps))
	byID := make(map[string]model.Application, len(apps))
	for _, app := range apps {
		byID[app.ID] = app
		items = append(items, anthropic.BatchRequestItem{
			CustomID: app.ID,
			Params: anthropic.MessageRequest{
				Model:     a.model,
				MaxTokens: a.maxTokens,
				System:    system,
				Messages: []anthropic.Message{{
					Role:    "user",
					Content: auditRowPrompt(app),
				}},
			},
		})
	}

	batch, err := a.provider.CreateBatch(ctx, anthropic.BatchRequest{Requests: items})
	if err != nil {
		return nil, err
	}
	zap.L().Info("audit batch submitted",
		zap.String("batch_id", batch.ID),
		zap.Int("rows", len(items)))

	if _, err := anthropic.PollBatch(ctx, a.provider, batch.ID); err != nil {
		return nil, err
	}
	iter, err := a.provider.GetBatchResults(ctx, batch.ID)
	if err != nil {
		return nil, err
	}
	responses, err := anthropic.CollectBatchResults(iter)
	if err != nil {
		return nil, err
	}

	var removals []string
	for id, resp := range responses {
		app, ok := byID[id]
		if !ok {
			continue
		}
		ans, ok := parseAuditAnswer(resp.Text())
		if !ok {
			zap.L().Warn("audit: unparseable verdict", zap.String("application_id", id))
			continue
		}
		if !ans.Keep {
			result.Removed = append(result.Removed, RemovedRow{
				Company: app.Company,
				Role:    app.Role,
				Reason:  ans.Reason,
			})
			removals = append(removals, id)
			continue
		}

		company := strings.TrimSpace(ans.Company)
		role := strings.TrimSpace(ans.Role)
		if company == "" {
			company = app.Company
		} else {
			company = normalize.Company(company)
		}
		if role == "" {
			role = app.Role
		}
		if company == app.Company && role == app.Role {
			continue
		}
		result.Enriched++
		if a.dryRun {
			continue
		}
		if err := a.store.RenameApplication(ctx, id, company, role); err != nil {
			return result, err
		}
	}

	if !a.dryRun {
		// Deletions go last, highest row first, so position-based IDs from
		// the sheet backend stay valid while earlier rows are removed.
		sort.Slice(removals, func(i, j int) bool {
			return rowOrdinal(removals[i]) > rowOrdinal(removals[j])
		})
		for _, id := range removals {
			if err := a.store.DeleteApplication(ctx, id); err != nil {
				return result, err
			}
		}
	}

	zap.L().Info("audit complete",
		zap.Int("reviewed", result.Reviewed),
		zap.Int("removed", len(result.Removed)),
		zap.Int("enriched", result.Enriched),
		zap.Bool("dry_run", a.dryRun))
	return result, nil
}

func auditRowPrompt(app model.Application) string {
	return fmt.Sprintf("Company: %s\nRole: %s\nStage: %s\nType: %s\nDate Applied: %s\nNotes:\n%s",
		app.Company, app.Role, app.Stage, app.Type, app.DateApplied, app.Notes)
}

// rowOrdinal orders position-based sheet IDs numerically; other ID schemes
// have no positional meaning and any order works.
func rowOrdinal(id string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "row:"))
	if err != nil {
		return 0
	}
	return n
}

func parseAuditAnswer(text string) (auditAnswer, bool) {
	raw := extractJSONObject(text)
	if raw == "" {
		return auditAnswer{}, false
	}
	var ans auditAnswer
	if err := json.Unmarshal([]byte(raw), &ans); err != nil {
		return auditAnswer{}, false
	}
	return ans, true
}
