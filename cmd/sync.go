package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobtrack/jobtrack-cli/internal/model"
	"github.com/jobtrack/jobtrack-cli/internal/normalize"
	"github.com/jobtrack/jobtrack-cli/internal/pipeline"
	"github.com/jobtrack/jobtrack-cli/internal/store"
	"github.com/jobtrack/jobtrack-cli/internal/summary"
	anthropicpkg "github.com/jobtrack/jobtrack-cli/pkg/anthropic"
	gmailpkg "github.com/jobtrack/jobtrack-cli/pkg/gmail"
)

var (
	syncInitial   bool
	syncNoPublish bool
)

// gmailSource adapts the Gmail client to the pipeline's email source.
type gmailSource struct {
	client gmailpkg.Client
}

func (s gmailSource) FetchSince(ctx context.Context, after time.Time) ([]model.CandidateEmail, error) {
	msgs, err := s.client.FetchSince(ctx, after)
	if err != nil {
		return nil, err
	}
	emails := make([]model.CandidateEmail, 0, len(msgs))
	for _, m := range msgs {
		emails = append(emails, model.CandidateEmail{
			ID:      m.ID,
			Subject: m.Subject,
			From:    m.From,
			Date:    m.Date,
			Body:    m.Body,
		})
	}
	return emails, nil
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Scan the mailbox and update the tracked application set",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		rules, err := normalize.LoadRules(cfg.RulesFile)
		if err != nil {
			return err
		}
		normalize.AddAliases(rules.CompanyAliases)

		gmailClient, err := gmailpkg.NewClient(ctx, cfg.Gmail.CredentialsFile, cfg.Gmail.TokenFile)
		if err != nil {
			return err
		}

		anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
		classifier := pipeline.NewClassifier(anthropicClient, st, cfg.Anthropic.Models, cfg.Classifier)
		extractor := pipeline.NewExtractor(rules.DomainCompanies)
		matcher := pipeline.Matcher{RoleOverlapThreshold: cfg.Match.RoleOverlapThreshold}

		p := pipeline.New(gmailSource{client: gmailClient}, st, extractor, classifier, matcher, cfg.Scan, cfg.Classifier.DailyQuota)

		result, err := p.Run(ctx, syncInitial)
		if err != nil {
			return eris.Wrap(err, "sync run")
		}

		if !syncNoPublish {
			if err := publishDashboard(ctx, st); err != nil {
				return err
			}
		}

		zap.L().Info("sync finished",
			zap.Int("new", result.NewApplications),
			zap.Int("updated", result.StagesUpdated))
		return nil
	},
}

// publishDashboard rewrites the Applications, Summary, and Sync Log tabs from
// the current store contents. Requires a configured spreadsheet.
func publishDashboard(ctx context.Context, st store.Store) error {
	client, err := initSheets(ctx)
	if err != nil {
		return err
	}
	id, err := ensureSpreadsheet(ctx, client)
	if err != nil {
		return err
	}
	pub := store.NewPublisher(client, id)

	apps, err := st.GetApplications(ctx)
	if err != nil {
		return err
	}
	if err := pub.PublishApplications(ctx, apps); err != nil {
		return err
	}
	if err := pub.PublishSummary(ctx, summary.Compute(apps)); err != nil {
		return err
	}
	logs, err := st.RecentSyncs(ctx, 20)
	if err != nil {
		return err
	}
	if err := pub.PublishSyncLog(ctx, logs); err != nil {
		return err
	}

	zap.L().Info("dashboard published",
		zap.Int("applications", len(apps)),
		zap.String("url", pub.URL()))
	return nil
}

func init() {
	syncCmd.Flags().BoolVar(&syncInitial, "initial", false, "scan the full backfill window instead of the daily one")
	syncCmd.Flags().BoolVar(&syncNoPublish, "no-publish", false, "skip rewriting the dashboard tabs after the run")
	rootCmd.AddCommand(syncCmd)
}
