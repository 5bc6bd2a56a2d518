// Package sheets wraps the Google Sheets API with the handful of operations
// the tracker needs: creating the workbook, overwriting tab ranges, appending
// rows, and coloring rows by stage.
package sheets

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// TabSpec describes a tab to create in a new spreadsheet.
type TabSpec struct {
	Title     string
	FrozenRow bool
	Hidden    bool
}

// RowColor assigns a background color to a single data row (0-based, below
// the header).
type RowColor struct {
	Row   int
	Red   float64
	Green float64
	Blue  float64
}

// Client performs spreadsheet operations.
type Client interface {
	Create(ctx context.Context, title string, tabs []TabSpec) (string, error)
	Read(ctx context.Context, spreadsheetID, readRange string) ([][]string, error)
	Overwrite(ctx context.Context, spreadsheetID, clearRange, writeRange string, values [][]any) error
	Append(ctx context.Context, spreadsheetID, appendRange string, values [][]any) error
	EnsureTab(ctx context.Context, spreadsheetID, title string, hidden bool) error
	SheetID(ctx context.Context, spreadsheetID, title string) (int64, error)
	ColorRows(ctx context.Context, spreadsheetID string, sheetID int64, colors []RowColor) error
}

type apiClient struct {
	svc *sheetsapi.Service
}

// NewClient wraps an already-authenticated Sheets service.
func NewClient(svc *sheetsapi.Service) Client {
	return &apiClient{svc: svc}
}

func (c *apiClient) Create(ctx context.Context, title string, tabs []TabSpec) (string, error) {
	book := &sheetsapi.Spreadsheet{
		Properties: &sheetsapi.SpreadsheetProperties{Title: title},
	}
	for _, tab := range tabs {
		props := &sheetsapi.SheetProperties{Title: tab.Title, Hidden: tab.Hidden}
		if tab.FrozenRow {
			props.GridProperties = &sheetsapi.GridProperties{FrozenRowCount: 1}
		}
		book.Sheets = append(book.Sheets, &sheetsapi.Sheet{Properties: props})
	}

	created, err := c.svc.Spreadsheets.Create(book).Context(ctx).Do()
	if err != nil {
		return "", eris.Wrapf(err, "sheets: create spreadsheet %q", title)
	}
	return created.SpreadsheetId, nil
}

func (c *apiClient) Read(ctx context.Context, spreadsheetID, readRange string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, eris.Wrapf(err, "sheets: read %s", readRange)
	}
	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			row[i] = fmt.Sprint(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c *apiClient) Overwrite(ctx context.Context, spreadsheetID, clearRange, writeRange string, values [][]any) error {
	_, err := c.svc.Spreadsheets.Values.Clear(spreadsheetID, clearRange, &sheetsapi.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return eris.Wrapf(err, "sheets: clear %s", clearRange)
	}
	if len(values) == 0 {
		return nil
	}
	_, err = c.svc.Spreadsheets.Values.Update(spreadsheetID, writeRange, &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return eris.Wrapf(err, "sheets: write %s", writeRange)
}

func (c *apiClient) Append(ctx context.Context, spreadsheetID, appendRange string, values [][]any) error {
	if len(values) == 0 {
		return nil
	}
	_, err := c.svc.Spreadsheets.Values.Append(spreadsheetID, appendRange, &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return eris.Wrapf(err, "sheets: append %s", appendRange)
}

func (c *apiClient) EnsureTab(ctx context.Context, spreadsheetID, title string, hidden bool) error {
	meta, err := c.svc.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return eris.Wrap(err, "sheets: get metadata")
	}
	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			return nil
		}
	}
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: title, Hidden: hidden},
			},
		}},
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	return eris.Wrapf(err, "sheets: add tab %q", title)
}

func (c *apiClient) SheetID(ctx context.Context, spreadsheetID, title string) (int64, error) {
	meta, err := c.svc.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, eris.Wrap(err, "sheets: get metadata")
	}
	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			return sheet.Properties.SheetId, nil
		}
	}
	return 0, eris.Errorf("sheets: tab %q not found", title)
}

func (c *apiClient) ColorRows(ctx context.Context, spreadsheetID string, sheetID int64, colors []RowColor) error {
	if len(colors) == 0 {
		return nil
	}
	requests := make([]*sheetsapi.Request, 0, len(colors))
	for _, rc := range colors {
		// Data rows start below the frozen header.
		start := int64(rc.Row) + 1
		requests = append(requests, &sheetsapi.Request{
			RepeatCell: &sheetsapi.RepeatCellRequest{
				Range: &sheetsapi.GridRange{
					SheetId:       sheetID,
					StartRowIndex: start,
					EndRowIndex:   start + 1,
				},
				Cell: &sheetsapi.CellData{
					UserEnteredFormat: &sheetsapi.CellFormat{
						BackgroundColor: &sheetsapi.Color{
							Red:   rc.Red,
							Green: rc.Green,
							Blue:  rc.Blue,
						},
					},
				},
				Fields: "userEnteredFormat.backgroundColor",
			},
		})
	}
	_, err := c.svc.Spreadsheets.BatchUpdate(spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return eris.Wrap(err, "sheets: color rows")
}
