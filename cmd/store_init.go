package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jobtrack/jobtrack-cli/internal/store"
	sheetspkg "github.com/jobtrack/jobtrack-cli/pkg/sheets"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "applications.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "sheet":
		client, err := initSheets(ctx)
		if err != nil {
			return nil, err
		}
		id, err := ensureSpreadsheet(ctx, client)
		if err != nil {
			return nil, err
		}
		return store.NewSheetStore(client, id), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initSheets(ctx context.Context) (sheetspkg.Client, error) {
	svc, err := sheetspkg.NewService(ctx, cfg.Gmail.CredentialsFile, cfg.Gmail.TokenFile)
	if err != nil {
		return nil, err
	}
	return sheetspkg.NewClient(svc), nil
}

// ensureSpreadsheet resolves the configured spreadsheet ID, creating the
// workbook on first use. The generated ID must be saved to config; runs are
// otherwise independent and would create a fresh workbook each time.
func ensureSpreadsheet(ctx context.Context, client sheetspkg.Client) (string, error) {
	if cfg.Sheets.SpreadsheetID != "" {
		return cfg.Sheets.SpreadsheetID, nil
	}
	id, err := store.CreateWorkbook(ctx, client, cfg.Sheets.Title)
	if err != nil {
		return "", err
	}
	zap.L().Warn("created new spreadsheet; set sheets.spreadsheet_id (JOBTRACK_SHEETS_SPREADSHEET_ID) to reuse it",
		zap.String("spreadsheet_id", id))
	cfg.Sheets.SpreadsheetID = id
	return id, nil
}
