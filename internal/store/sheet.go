package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/jobtrack/jobtrack-cli/internal/model"
	"github.com/jobtrack/jobtrack-cli/internal/summary"
	"github.com/jobtrack/jobtrack-cli/pkg/sheets"
)

// Tab names in the tracker workbook. ProcessedEmails and AIUsage are hidden
// bookkeeping tabs.
const (
	tabApplications = "Applications"
	tabSummary      = "Summary"
	tabSyncLog      = "Sync Log"
	tabProcessed    = "ProcessedEmails"
	tabAIUsage      = "AIUsage"
)

const syncLogCap = 100

// stageColors maps each stage to its row background in the Applications tab.
var stageColors = map[model.Stage]string{
	model.StageApplied:            "#E8F0FE",
	model.StageInReview:           "#D2E3FC",
	model.StageAssessment:         "#A8DADC",
	model.StagePhoneScreen:        "#FEF3C7",
	model.StageInterviewScheduled: "#FDE68A",
	model.StageInterviewed:        "#FCD34D",
	model.StageOffer:              "#86EFAC",
	model.StageRejected:           "#FCA5A5",
	model.StageWithdrawn:          "#D1D5DB",
}

// CreateWorkbook creates a new tracker spreadsheet with all tabs and returns
// its ID.
func CreateWorkbook(ctx context.Context, client sheets.Client, title string) (string, error) {
	return client.Create(ctx, title, []sheets.TabSpec{
		{Title: tabApplications, FrozenRow: true},
		{Title: tabSummary, FrozenRow: true},
		{Title: tabSyncLog, FrozenRow: true},
		{Title: tabProcessed, Hidden: true},
		{Title: tabAIUsage, Hidden: true},
	})
}

// SheetStore implements Store directly against the workbook, for runs on
// hosts with no local database. Row positions in the Applications tab serve
// as application IDs for the duration of a run.
type SheetStore struct {
	client        sheets.Client
	spreadsheetID string

	dispositions map[string]model.Disposition
}

// NewSheetStore creates a workbook-backed store.
func NewSheetStore(client sheets.Client, spreadsheetID string) *SheetStore {
	return &SheetStore{client: client, spreadsheetID: spreadsheetID}
}

func (s *SheetStore) Migrate(ctx context.Context) error {
	for _, tab := range []struct {
		name   string
		hidden bool
	}{
		{tabApplications, false},
		{tabSummary, false},
		{tabSyncLog, false},
		{tabProcessed, true},
		{tabAIUsage, true},
	} {
		if err := s.client.EnsureTab(ctx, s.spreadsheetID, tab.name, tab.hidden); err != nil {
			return err
		}
	}
	// Seed header rows so appends land below them.
	for _, h := range []struct {
		tab    string
		header []any
	}{
		{tabApplications, applicationHeader()},
		{tabSyncLog, syncLogHeader()},
	} {
		rows, err := s.client.Read(ctx, s.spreadsheetID, h.tab+"!A1:G1")
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			if err := s.client.Overwrite(ctx, s.spreadsheetID, h.tab+"!A1:G1", h.tab+"!A1", [][]any{h.header}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SheetStore) Close() error { return nil }

func (s *SheetStore) GetApplications(ctx context.Context) ([]model.Application, error) {
	rows, err := s.client.Read(ctx, s.spreadsheetID, tabApplications+"!A2:G")
	if err != nil {
		return nil, err
	}
	apps := make([]model.Application, 0, len(rows))
	for i, row := range rows {
		if len(row) < 5 {
			continue
		}
		app := model.Application{
			ID:          rowID(i + 2),
			Company:     row[0],
			Role:        row[1],
			Stage:       model.Stage(row[2]),
			Type:        model.AppType(row[3]),
			DateApplied: row[4],
		}
		if len(row) > 5 {
			app.LastUpdated = parseSheetTime(row[5])
		}
		if len(row) > 6 {
			app.Notes = row[6]
		}
		apps = append(apps, app)
	}
	return apps, nil
}

func (s *SheetStore) InsertApplication(ctx context.Context, app model.Application) (string, error) {
	app.LastUpdated = time.Now().UTC()
	if err := s.client.Append(ctx, s.spreadsheetID, tabApplications+"!A:G", [][]any{applicationRow(app)}); err != nil {
		return "", err
	}
	rows, err := s.client.Read(ctx, s.spreadsheetID, tabApplications+"!A2:A")
	if err != nil {
		return "", err
	}
	return rowID(len(rows) + 1), nil
}

// findApplication loads the tab and locates the row carrying the given ID.
// Matching by ID rather than row arithmetic keeps the lookup correct when the
// tab holds malformed rows that GetApplications skips.
func (s *SheetStore) findApplication(ctx context.Context, id string) ([]model.Application, int, error) {
	if _, err := parseRowID(id); err != nil {
		return nil, 0, err
	}
	apps, err := s.GetApplications(ctx)
	if err != nil {
		return nil, 0, err
	}
	for i := range apps {
		if apps[i].ID == id {
			return apps, i, nil
		}
	}
	return nil, 0, eris.Errorf("application not found: %s", id)
}

func (s *SheetStore) UpdateApplication(ctx context.Context, id string, stage model.Stage, notes string) error {
	apps, idx, err := s.findApplication(ctx, id)
	if err != nil {
		return err
	}
	apps[idx].Stage = stage
	apps[idx].Notes = notes
	apps[idx].LastUpdated = time.Now().UTC()
	return s.writeApplications(ctx, apps)
}

func (s *SheetStore) RenameApplication(ctx context.Context, id string, company, role string) error {
	apps, idx, err := s.findApplication(ctx, id)
	if err != nil {
		return err
	}
	apps[idx].Company = company
	apps[idx].Role = role
	apps[idx].LastUpdated = time.Now().UTC()
	return s.writeApplications(ctx, apps)
}

func (s *SheetStore) DeleteApplication(ctx context.Context, id string) error {
	apps, idx, err := s.findApplication(ctx, id)
	if err != nil {
		return err
	}
	apps = append(apps[:idx], apps[idx+1:]...)
	return s.writeApplications(ctx, apps)
}

func (s *SheetStore) writeApplications(ctx context.Context, apps []model.Application) error {
	values := [][]any{applicationHeader()}
	for _, app := range apps {
		values = append(values, applicationRow(app))
	}
	return s.client.Overwrite(ctx, s.spreadsheetID, tabApplications+"!A1:G", tabApplications+"!A1", values)
}

func (s *SheetStore) SkipForeverIDs(ctx context.Context) (map[string]struct{}, error) {
	return s.dispositionSet(ctx, model.DispositionSkipForever)
}

func (s *SheetStore) RetryPendingIDs(ctx context.Context) (map[string]struct{}, error) {
	return s.dispositionSet(ctx, model.DispositionRetryPending)
}

func (s *SheetStore) dispositionSet(ctx context.Context, want model.Disposition) (map[string]struct{}, error) {
	if err := s.loadDispositions(ctx); err != nil {
		return nil, err
	}
	ids := make(map[string]struct{})
	for id, d := range s.dispositions {
		if d == want {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

func (s *SheetStore) loadDispositions(ctx context.Context) error {
	if s.dispositions != nil {
		return nil
	}
	rows, err := s.client.Read(ctx, s.spreadsheetID, tabProcessed+"!A:B")
	if err != nil {
		return err
	}
	s.dispositions = make(map[string]model.Disposition, len(rows))
	for _, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		// Rows written before dispositions existed carry only the ID.
		d := model.DispositionSkipForever
		if len(row) > 1 && row[1] != "" {
			d = model.Disposition(row[1])
		}
		s.dispositions[strings.TrimSpace(row[0])] = d
	}
	return nil
}

func (s *SheetStore) MarkDisposition(ctx context.Context, emailID string, d model.Disposition) error {
	if err := s.loadDispositions(ctx); err != nil {
		return err
	}
	prev, known := s.dispositions[emailID]
	if known && prev == d {
		return nil
	}
	s.dispositions[emailID] = d
	if !known {
		return s.client.Append(ctx, s.spreadsheetID, tabProcessed+"!A:B", [][]any{{emailID, string(d)}})
	}
	// Disposition changed (retry became permanent): rewrite the tab.
	values := make([][]any, 0, len(s.dispositions))
	for id, disp := range s.dispositions {
		values = append(values, []any{id, string(disp)})
	}
	return s.client.Overwrite(ctx, s.spreadsheetID, tabProcessed+"!A:B", tabProcessed+"!A1", values)
}

func (s *SheetStore) DailyCallCount(ctx context.Context, date string) (int, error) {
	rows, err := s.client.Read(ctx, s.spreadsheetID, tabAIUsage+"!A:B")
	if err != nil {
		return 0, err
	}
	for _, row := range rows {
		if len(row) > 1 && row[0] == date {
			n, _ := strconv.Atoi(row[1])
			return n, nil
		}
	}
	return 0, nil
}

func (s *SheetStore) IncrementDailyCalls(ctx context.Context, date string) (int, error) {
	rows, err := s.client.Read(ctx, s.spreadsheetID, tabAIUsage+"!A:B")
	if err != nil {
		return 0, err
	}
	count := 1
	found := false
	values := make([][]any, 0, len(rows)+1)
	for _, row := range rows {
		if len(row) > 1 && row[0] == date {
			n, _ := strconv.Atoi(row[1])
			count = n + 1
			values = append(values, []any{date, count})
			found = true
			continue
		}
		if len(row) > 1 {
			values = append(values, []any{row[0], row[1]})
		}
	}
	if !found {
		values = append(values, []any{date, count})
	}
	if err := s.client.Overwrite(ctx, s.spreadsheetID, tabAIUsage+"!A:B", tabAIUsage+"!A1", values); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *SheetStore) LogSync(ctx context.Context, sum model.SyncSummary) error {
	logs, err := s.RecentSyncs(ctx, syncLogCap-1)
	if err != nil {
		return err
	}
	logs = append([]model.SyncSummary{sum}, logs...)
	values := [][]any{syncLogHeader()}
	for _, l := range logs {
		values = append(values, syncLogRow(l))
	}
	return s.client.Overwrite(ctx, s.spreadsheetID, tabSyncLog+"!A1:G", tabSyncLog+"!A1", values)
}

func (s *SheetStore) RecentSyncs(ctx context.Context, limit int) ([]model.SyncSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.client.Read(ctx, s.spreadsheetID, tabSyncLog+"!A2:G")
	if err != nil {
		return nil, err
	}
	out := make([]model.SyncSummary, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		sum := model.SyncSummary{
			Timestamp:       parseSheetTime(row[0]),
			EmailsScanned:   atoiSafe(row[1]),
			NewApplications: atoiSafe(row[2]),
			StagesUpdated:   atoiSafe(row[3]),
			EmailsSkipped:   atoiSafe(row[4]),
			SkipReasons:     row[5],
		}
		if len(row) > 6 {
			sum.InitialRun = strings.EqualFold(row[6], "yes")
		}
		out = append(out, sum)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Publisher renders the database-backed stores' contents to the workbook so
// the sheet stays the human-facing view regardless of backend.
type Publisher struct {
	client        sheets.Client
	spreadsheetID string
}

// NewPublisher creates a workbook publisher.
func NewPublisher(client sheets.Client, spreadsheetID string) *Publisher {
	return &Publisher{client: client, spreadsheetID: spreadsheetID}
}

// URL returns the browser link for the workbook.
func (p *Publisher) URL() string {
	return "https://docs.google.com/spreadsheets/d/" + p.spreadsheetID
}

// PublishApplications rewrites the Applications tab and recolors rows by
// stage.
func (p *Publisher) PublishApplications(ctx context.Context, apps []model.Application) error {
	values := [][]any{applicationHeader()}
	colors := make([]sheets.RowColor, 0, len(apps))
	for i, app := range apps {
		values = append(values, applicationRow(app))
		if hex, ok := stageColors[app.Stage]; ok {
			r, g, b := hexToRGB(hex)
			colors = append(colors, sheets.RowColor{Row: i, Red: r, Green: g, Blue: b})
		}
	}
	if err := p.client.Overwrite(ctx, p.spreadsheetID, tabApplications+"!A1:G", tabApplications+"!A1", values); err != nil {
		return err
	}
	sheetID, err := p.client.SheetID(ctx, p.spreadsheetID, tabApplications)
	if err != nil {
		return err
	}
	return p.client.ColorRows(ctx, p.spreadsheetID, sheetID, colors)
}

// PublishSummary rewrites the Summary dashboard tab.
func (p *Publisher) PublishSummary(ctx context.Context, stats summary.Stats) error {
	values := [][]any{
		{"Job Application Tracker - Summary"},
		{},
		{"Total Applications", stats.Total},
		{"Active Pipeline", stats.Active},
		{"Interview Rate", summary.Percent(stats.InterviewRate)},
		{"Offer Rate", summary.Percent(stats.OfferRate)},
		{"Rejection Rate", summary.Percent(stats.RejectionRate)},
		{},
		{"Breakdown by Stage"},
		{"Stage", "Count", "Bar"},
	}
	for _, sc := range stats.ByStage {
		values = append(values, []any{string(sc.Stage), sc.Count, sc.Bar})
	}
	values = append(values, []any{}, []any{"Monthly Breakdown"}, []any{"Month", "Applications"})
	for _, mc := range stats.MonthlyApplied {
		values = append(values, []any{mc.Month, mc.Count})
	}
	return p.client.Overwrite(ctx, p.spreadsheetID, tabSummary+"!A1:C", tabSummary+"!A1", values)
}

// PublishSyncLog rewrites the Sync Log tab with the most recent runs.
func (p *Publisher) PublishSyncLog(ctx context.Context, logs []model.SyncSummary) error {
	if len(logs) > syncLogCap {
		logs = logs[:syncLogCap]
	}
	values := [][]any{syncLogHeader()}
	for _, l := range logs {
		values = append(values, syncLogRow(l))
	}
	return p.client.Overwrite(ctx, p.spreadsheetID, tabSyncLog+"!A1:G", tabSyncLog+"!A1", values)
}

// row helpers shared by the store and the publisher

func applicationHeader() []any {
	return []any{"Company", "Role", "Stage", "Type", "Date Applied", "Last Updated", "Notes"}
}

func applicationRow(app model.Application) []any {
	return []any{
		app.Company,
		app.Role,
		string(app.Stage),
		string(app.Type),
		app.DateApplied,
		app.LastUpdated.UTC().Format("2006-01-02 15:04"),
		app.Notes,
	}
}

func syncLogHeader() []any {
	return []any{"Timestamp", "Emails Scanned", "New Apps", "Status Updates", "Skipped", "Skip Reasons", "Initial Run"}
}

func syncLogRow(l model.SyncSummary) []any {
	reasons := l.SkipReasons
	if len(reasons) > 500 {
		reasons = reasons[:500]
	}
	initial := "No"
	if l.InitialRun {
		initial = "Yes"
	}
	return []any{
		l.Timestamp.UTC().Format("2006-01-02 15:04"),
		l.EmailsScanned,
		l.NewApplications,
		l.StagesUpdated,
		l.EmailsSkipped,
		reasons,
		initial,
	}
}

func rowID(row int) string {
	return "row:" + strconv.Itoa(row)
}

func parseRowID(id string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "row:"))
	if err != nil {
		return 0, eris.Errorf("invalid sheet application id: %s", id)
	}
	return n, nil
}

var sheetTimeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

func parseSheetTime(s string) time.Time {
	for _, layout := range sheetTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func atoiSafe(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func hexToRGB(hex string) (r, g, b float64) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 1, 1, 1
	}
	parse := func(s string) float64 {
		n, _ := strconv.ParseInt(s, 16, 32)
		return float64(n) / 255
	}
	return parse(hex[0:2]), parse(hex[2:4]), parse(hex[4:6])
}
