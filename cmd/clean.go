package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobtrack/jobtrack-cli/internal/pipeline"
	anthropicpkg "github.com/jobtrack/jobtrack-cli/pkg/anthropic"
)

var (
	cleanModel  string
	cleanDryRun bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Audit the tracked set with a batch AI pass",
	Long:  "Submits every tracked row to a Claude batch that flags non-applications for removal and fills in truncated company or role names.",
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

		modelID := cleanModel
		if modelID == "" {
			if len(cfg.Anthropic.Models) == 0 {
				return eris.New("no model configured: set anthropic.models or pass --model")
			}
			modelID = cfg.Anthropic.Models[0]
		}

		anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
		auditor := pipeline.NewAuditor(anthropicClient, st, modelID, int64(cfg.Classifier.MaxTokens), cleanDryRun)

		result, err := auditor.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "audit run")
		}

		for _, row := range result.Removed {
			zap.L().Info("flagged for removal",
				zap.String("company", row.Company),
				zap.String("role", row.Role),
				zap.String("reason", row.Reason))
		}
		zap.L().Info("audit complete",
			zap.Int("reviewed", result.Reviewed),
			zap.Int("removed", len(result.Removed)),
			zap.Int("enriched", result.Enriched),
			zap.Bool("dry_run", cleanDryRun))
		return nil
	},
}

func init() {
	cleanCmd.Flags().StringVar(&cleanModel, "model", "", "model ID for the audit batch (default: first configured model)")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "report verdicts without writing any changes")
	rootCmd.AddCommand(cleanCmd)
}
