package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobtrack/jobtrack-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "jobtrack",
	Short: "Job application tracking pipeline",
	Long:  "Scans Gmail for application emails, extracts company/role/stage via rules with a tiered Claude fallback, deduplicates into a tracked set, and publishes a Google Sheets dashboard.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
