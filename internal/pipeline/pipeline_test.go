package pipeline

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobtrack/jobtrack-cli/internal/config"
	"github.com/jobtrack/jobtrack-cli/internal/model"
)

func withID(id string, e model.CandidateEmail) model.CandidateEmail {
	e.ID = id
	return e
}

// fakeSource returns a fixed email list.
type fakeSource struct {
	emails []model.CandidateEmail
	after  time.Time
}

func (s *fakeSource) FetchSince(ctx context.Context, after time.Time) ([]model.CandidateEmail, error) {
	s.after = after
	return s.emails, nil
}

// memStore is an in-memory Store for pipeline tests.
type memStore struct {
	apps         []model.Application
	dispositions map[string]model.Disposition
	quota        map[string]int
	syncs        []model.SyncSummary
	nextID       int
}

func newMemStore() *memStore {
	return &memStore{
		dispositions: make(map[string]model.Disposition),
		quota:        make(map[string]int),
	}
}

func (m *memStore) GetApplications(ctx context.Context) ([]model.Application, error) {
	out := make([]model.Application, len(m.apps))
	copy(out, m.apps)
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastUpdated.After(out[j].LastUpdated) })
	return out, nil
}

func (m *memStore) InsertApplication(ctx context.Context, app model.Application) (string, error) {
	m.nextID++
	app.ID = fmt.Sprintf("app-%d", m.nextID)
	app.LastUpdated = time.Now().UTC()
	m.apps = append(m.apps, app)
	return app.ID, nil
}

func (m *memStore) UpdateApplication(ctx context.Context, id string, stage model.Stage, notes string) error {
	for i := range m.apps {
		if m.apps[i].ID == id {
			m.apps[i].Stage = stage
			m.apps[i].Notes = notes
			m.apps[i].LastUpdated = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("application not found: %s", id)
}

func (m *memStore) RenameApplication(ctx context.Context, id string, company, role string) error {
	for i := range m.apps {
		if m.apps[i].ID == id {
			m.apps[i].Company = company
			m.apps[i].Role = role
			return nil
		}
	}
	return fmt.Errorf("application not found: %s", id)
}

func (m *memStore) DeleteApplication(ctx context.Context, id string) error {
	for i := range m.apps {
		if m.apps[i].ID == id {
			m.apps = append(m.apps[:i], m.apps[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("application not found: %s", id)
}

func (m *memStore) SkipForeverIDs(ctx context.Context) (map[string]struct{}, error) {
	return m.dispositionSet(model.DispositionSkipForever), nil
}

func (m *memStore) RetryPendingIDs(ctx context.Context) (map[string]struct{}, error) {
	return m.dispositionSet(model.DispositionRetryPending), nil
}

func (m *memStore) dispositionSet(want model.Disposition) map[string]struct{} {
	out := make(map[string]struct{})
	for id, d := range m.dispositions {
		if d == want {
			out[id] = struct{}{}
		}
	}
	return out
}

func (m *memStore) MarkDisposition(ctx context.Context, emailID string, d model.Disposition) error {
	m.dispositions[emailID] = d
	return nil
}

func (m *memStore) DailyCallCount(ctx context.Context, date string) (int, error) {
	return m.quota[date], nil
}

func (m *memStore) IncrementDailyCalls(ctx context.Context, date string) (int, error) {
	m.quota[date]++
	return m.quota[date], nil
}

func (m *memStore) LogSync(ctx context.Context, s model.SyncSummary) error {
	m.syncs = append(m.syncs, s)
	return nil
}

func (m *memStore) RecentSyncs(ctx context.Context, limit int) ([]model.SyncSummary, error) {
	return m.syncs, nil
}

func (m *memStore) Migrate(ctx context.Context) error { return nil }
func (m *memStore) Close() error                      { return nil }

func newTestPipeline(source Source, st *memStore, provider *fakeProvider) *Pipeline {
	cfg := testClassifierConfig()
	classifier := NewClassifier(provider, st, []string{"model-a"}, cfg)
	return New(source, st, NewExtractor(nil), classifier, newTestMatcher(),
		config.ScanConfig{InitialMonths: 8, DailyDays: 7}, cfg.DailyQuota)
}

func TestPipeline_RunMixedBatch(t *testing.T) {
	emails := []model.CandidateEmail{
		withID("m1", candidate("Your weekly job alert", "digest@jobspam.com", "")),
		withID("m2", candidate("Your application for Backend Engineer at Stripe", "no-reply@stripe.com", "We received your application.")),
		withID("m3", candidate("Interview invitation", "no-reply@stripe.com", "We are reviewing your application for Backend Engineer position and would like to schedule a call.")),
	}
	st := newMemStore()
	provider := &fakeProvider{}
	p := newTestPipeline(&fakeSource{emails: emails}, st, provider)

	sum, err := p.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 3, sum.EmailsScanned)
	assert.Equal(t, 1, sum.NewApplications)
	assert.Equal(t, 1, sum.StagesUpdated)
	assert.Equal(t, 1, sum.EmailsSkipped)
	assert.Contains(t, sum.SkipReasons, "reject: job alert")

	require.Len(t, st.apps, 1, "the interview email must merge, not insert")
	assert.Equal(t, "Stripe", st.apps[0].Company)
	assert.Equal(t, model.StageInterviewScheduled, st.apps[0].Stage)

	assert.Equal(t, 0, provider.calls, "rule-extractable mail must not spend AI budget")
	require.Len(t, st.syncs, 1)
}

func TestPipeline_ReplayIsIdempotent(t *testing.T) {
	emails := []model.CandidateEmail{
		candidate("Your application for Backend Engineer at Stripe", "no-reply@stripe.com", "We received your application."),
	}
	st := newMemStore()
	p := newTestPipeline(&fakeSource{emails: emails}, st, &fakeProvider{})

	_, err := p.Run(context.Background(), false)
	require.NoError(t, err)
	sum, err := p.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 0, sum.NewApplications, "processed email IDs must be skipped on replay")
	assert.Len(t, st.apps, 1)
}

func TestPipeline_ClassifierFallback(t *testing.T) {
	// No extractable company from the sender, so the classifier must decide.
	emails := []model.CandidateEmail{
		candidate("Next steps", "hello@mail.fake", "We want to move forward with you."),
	}
	provider := &fakeProvider{responses: []string{
		`{"company":"Obscura","role":"Systems Engineer","stage":"Phone Screen","confidence":0.9}`,
	}}
	st := newMemStore()
	p := newTestPipeline(&fakeSource{emails: emails}, st, provider)

	sum, err := p.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, 1, sum.NewApplications)
	require.Len(t, st.apps, 1)
	assert.Equal(t, "Obscura", st.apps[0].Company)
	assert.Equal(t, model.StagePhoneScreen, st.apps[0].Stage)
	assert.Equal(t, 1, st.quota[time.Now().UTC().Format("2006-01-02")])
}

func TestPipeline_AINotAnApplication(t *testing.T) {
	emails := []model.CandidateEmail{
		candidate("Next steps", "hello@mail.fake", "Your gym membership is expiring."),
	}
	provider := &fakeProvider{responses: []string{"null"}}
	st := newMemStore()
	p := newTestPipeline(&fakeSource{emails: emails}, st, provider)

	sum, err := p.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 0, sum.NewApplications)
	assert.Equal(t, 1, sum.EmailsSkipped)
	assert.Equal(t, model.DispositionSkipForever, st.dispositions["e1"])
}

func TestPipeline_TransientAIFailureLeavesRetry(t *testing.T) {
	emails := []model.CandidateEmail{
		candidate("Next steps", "hello@mail.fake", "Something ambiguous."),
	}
	provider := &fakeProvider{errs: []error{fmt.Errorf("429 too many requests")}}
	st := newMemStore()
	p := newTestPipeline(&fakeSource{emails: emails}, st, provider)

	sum, err := p.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.EmailsSkipped)
	assert.Equal(t, model.DispositionRetryPending, st.dispositions["e1"])
}

func TestPipeline_QuotaStopsCleanly(t *testing.T) {
	emails := []model.CandidateEmail{
		candidate("Next steps", "hello@mail.fake", "Ambiguous."),
	}
	st := newMemStore()
	st.quota[time.Now().UTC().Format("2006-01-02")] = 1400
	p := newTestPipeline(&fakeSource{emails: emails}, st, &fakeProvider{})

	sum, err := p.Run(context.Background(), false)
	require.NoError(t, err, "quota exhaustion is a clean stop, not a failure")
	assert.Equal(t, 0, sum.NewApplications)
	_, processed := st.dispositions["e1"]
	assert.False(t, processed, "unprocessed mail must stay eligible for the next run")
}

func TestPipeline_ScanWindows(t *testing.T) {
	st := newMemStore()
	src := &fakeSource{}
	p := newTestPipeline(src, st, &fakeProvider{})

	_, err := p.Run(context.Background(), true)
	require.NoError(t, err)
	initialDays := time.Since(src.after).Hours() / 24
	assert.InDelta(t, 240, initialDays, 1, "initial window is months*30 days")

	_, err = p.Run(context.Background(), false)
	require.NoError(t, err)
	dailyDays := time.Since(src.after).Hours() / 24
	assert.InDelta(t, 7, dailyDays, 1)
}
