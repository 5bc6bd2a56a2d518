package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jobtrack/jobtrack-cli/internal/config"
	"github.com/jobtrack/jobtrack-cli/internal/model"
	"github.com/jobtrack/jobtrack-cli/internal/resilience"
	"github.com/jobtrack/jobtrack-cli/pkg/anthropic"
)

// classifyPrompt instructs the model to answer with one JSON object or the
// literal word null. Any other text is discarded by the balanced-brace parser.
const classifyPrompt = `Extract job application data. Return ONLY this JSON or the word null:
{"company":"Name","role":"Title","stage":"Applied|In Review|OA/Assessment|Phone Screen|Interview Scheduled|Interviewed|Offer|Rejected|Withdrawn","notes":"one line","is_internship":true/false,"confidence":0.0-1.0}
If not a real application response, return null. No other text.`

var classifyTemperature = 0.1

// errQuotaExhausted stops the retry loop without counting as a failure.
var errQuotaExhausted = errors.New("daily AI quota exhausted")

// QuotaTracker is the slice of the store the classifier needs for the daily
// call budget. Dates are UTC calendar days formatted as 2006-01-02.
type QuotaTracker interface {
	DailyCallCount(ctx context.Context, date string) (int, error)
	IncrementDailyCalls(ctx context.Context, date string) (int, error)
}

// Classifier is the AI fallback stage. It burns one quota unit per provider
// call, respects a minimum interval between calls, and cascades through the
// configured models when one is rate-limit exhausted.
type Classifier struct {
	provider anthropic.Client
	quota    QuotaTracker
	limiter  *rate.Limiter
	models   []string
	cfg      config.ClassifierConfig
}

// NewClassifier creates the AI fallback stage.
func NewClassifier(provider anthropic.Client, quota QuotaTracker, models []string, cfg config.ClassifierConfig) *Classifier {
	interval := cfg.MinCallInterval()
	if interval <= 0 {
		interval = time.Second
	}
	return &Classifier{
		provider: provider,
		quota:    quota,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		models:   models,
		cfg:      cfg,
	}
}

// Classify sends the email to the model cascade and parses the structured
// answer. A success with a nil record means the model judged the email not to
// be a real application response.
func (c *Classifier) Classify(ctx context.Context, email model.CandidateEmail) (model.ClassifyStatus, *model.ExtractedRecord) {
	prompt := fmt.Sprintf("Subject: %s\nFrom: %s\n\nBody:\n%s",
		email.Subject, email.From, CleanBody(email.Body))

	retryCfg := resilience.RetryConfig{
		MaxAttempts: c.cfg.MaxAttempts,
		Backoff:     c.cfg.Backoff(),
		ShouldRetry: func(err error) bool {
			return !errors.Is(err, errQuotaExhausted) && resilience.IsRateLimited(err)
		},
		OnRetry: resilience.RetryLogger("anthropic", "classify"),
	}

	var lastErr error
	for _, modelID := range c.models {
		text, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (string, error) {
			return c.callModel(ctx, modelID, prompt)
		})
		switch {
		case err == nil:
			record := c.parseResponse(text, email.ID)
			return model.ClassifySuccess, record
		case errors.Is(err, errQuotaExhausted):
			return model.ClassifyQuota, nil
		case resilience.IsRateLimited(err):
			// Exhausted retries on this model; fall through the cascade.
			zap.L().Warn("classifier: model rate-limit exhausted",
				zap.String("model", modelID),
				zap.String("email_id", email.ID))
			lastErr = err
		default:
			zap.L().Error("classifier: provider call failed",
				zap.String("model", modelID),
				zap.String("email_id", email.ID),
				zap.Error(err))
			return model.ClassifyError, nil
		}
	}

	if lastErr != nil {
		return model.ClassifyRateLimitFail, nil
	}
	return model.ClassifyError, nil
}

// callModel performs one provider call: quota gate, pacing, request, and
// quota increment. The quota is re-checked before every attempt so a budget
// consumed mid-retry still stops the loop.
func (c *Classifier) callModel(ctx context.Context, modelID, prompt string) (string, error) {
	today := time.Now().UTC().Format("2006-01-02")
	count, err := c.quota.DailyCallCount(ctx, today)
	if err != nil {
		return "", err
	}
	if count >= c.cfg.DailyQuota {
		return "", errQuotaExhausted
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.provider.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       modelID,
		MaxTokens:   int64(c.cfg.MaxTokens),
		System:      anthropic.BuildCachedSystemBlocks(classifyPrompt),
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &classifyTemperature,
	})
	if err != nil {
		return "", err
	}

	if _, ierr := c.quota.IncrementDailyCalls(ctx, today); ierr != nil {
		zap.L().Warn("classifier: quota increment failed", zap.Error(ierr))
	}
	return resp.Text(), nil
}

// classifyAnswer is the wire shape of the model's JSON answer.
type classifyAnswer struct {
	Company      string  `json:"company"`
	Role         string  `json:"role"`
	Stage        string  `json:"stage"`
	Date         string  `json:"date"`
	Notes        string  `json:"notes"`
	IsInternship bool    `json:"is_internship"`
	Confidence   float64 `json:"confidence"`
}

// parseResponse extracts and validates the model's answer. Nil means "not an
// application" — either the literal null, unparseable output, or a record
// that fails validation.
func (c *Classifier) parseResponse(text, emailID string) *model.ExtractedRecord {
	raw := extractJSONObject(text)
	if raw == "" {
		return nil
	}

	var ans classifyAnswer
	if err := json.Unmarshal([]byte(raw), &ans); err != nil {
		zap.L().Debug("classifier: malformed JSON answer",
			zap.String("email_id", emailID),
			zap.Error(err))
		return nil
	}

	company := strings.TrimSpace(ans.Company)
	role := strings.TrimSpace(ans.Role)
	stage := model.Stage(strings.TrimSpace(ans.Stage))
	if company == "" || role == "" || !stage.Valid() {
		return nil
	}
	if ans.Confidence > 0 && ans.Confidence < c.cfg.ConfidenceThreshold {
		zap.L().Debug("classifier: low-confidence answer dropped",
			zap.String("email_id", emailID),
			zap.Float64("confidence", ans.Confidence))
		return nil
	}

	date := ans.Date
	if len(date) > 10 {
		date = date[:10]
	}
	return &model.ExtractedRecord{
		Company:      company,
		Role:         role,
		Stage:        stage,
		OccurredDate: date,
		Notes:        strings.TrimSpace(ans.Notes),
		IsInternship: ans.IsInternship,
		Confidence:   ans.Confidence,
	}
}

// extractJSONObject returns the first balanced {...} span in text, tolerating
// code fences and prose around it. The literal "null" (or nothing) yields "".
func extractJSONObject(text string) string {
	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, "null") {
		return ""
	}
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
