package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/jobtrack/jobtrack-cli/internal/model"
	notionpkg "github.com/jobtrack/jobtrack-cli/pkg/notion"
)

var (
	exportXLSXPath string
	exportNotion   bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the tracked application set to xlsx or Notion",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if exportXLSXPath == "" && !exportNotion {
			return eris.New("nothing to do: pass --xlsx or --notion")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		apps, err := st.GetApplications(ctx)
		if err != nil {
			return err
		}

		if exportXLSXPath != "" {
			if err := writeXLSX(exportXLSXPath, apps); err != nil {
				return err
			}
			zap.L().Info("xlsx written", zap.String("path", exportXLSXPath), zap.Int("rows", len(apps)))
		}

		if exportNotion {
			if err := exportToNotion(ctx, apps); err != nil {
				return err
			}
		}

		return nil
	},
}

func writeXLSX(path string, apps []model.Application) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Applications")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Company", "Role", "Stage", "Type", "Date Applied", "Last Updated", "Notes"} {
		header.AddCell().SetString(h)
	}
	for _, app := range apps {
		row := sheet.AddRow()
		row.AddCell().SetString(app.Company)
		row.AddCell().SetString(app.Role)
		row.AddCell().SetString(string(app.Stage))
		row.AddCell().SetString(string(app.Type))
		row.AddCell().SetString(app.DateApplied)
		row.AddCell().SetString(app.LastUpdated.Format("2006-01-02 15:04"))
		row.AddCell().SetString(app.Notes)
	}

	return eris.Wrap(f.Save(path), "export: save xlsx")
}

func exportToNotion(ctx context.Context, apps []model.Application) error {
	if cfg.Notion.Token == "" || cfg.Notion.ApplicationDB == "" {
		return eris.New("notion export requires notion.token and notion.application_db")
	}

	client := notionpkg.NewClient(cfg.Notion.Token)
	for _, app := range apps {
		page := notionpkg.ApplicationPage{
			Company:     app.Company,
			Role:        app.Role,
			Stage:       string(app.Stage),
			Type:        string(app.Type),
			DateApplied: app.DateApplied,
			Notes:       app.Notes,
		}
		if err := notionpkg.UpsertApplication(ctx, client, cfg.Notion.ApplicationDB, page); err != nil {
			return err
		}
	}

	zap.L().Info("notion export complete", zap.Int("pages", len(apps)))
	return nil
}

func init() {
	exportCmd.Flags().StringVar(&exportXLSXPath, "xlsx", "", "write the tracked set to this xlsx file")
	exportCmd.Flags().BoolVar(&exportNotion, "notion", false, "upsert the tracked set into the configured Notion database")
	rootCmd.AddCommand(exportCmd)
}
