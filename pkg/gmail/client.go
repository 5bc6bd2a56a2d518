// Package gmail wraps the Gmail API for fetching candidate job-application
// emails. The search query is deliberately broad; downstream filtering decides
// what is actually job-related.
package gmail

import (
	"context"
	"encoding/base64"
	"net/mail"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Message is a fetched email, decoded to plain text.
type Message struct {
	ID       string
	ThreadID string
	Subject  string
	From     string
	Date     time.Time
	Body     string
}

// Client fetches candidate emails from a mailbox.
type Client interface {
	FetchSince(ctx context.Context, after time.Time) ([]Message, error)
}

// Option configures the client.
type Option func(*apiClient)

// WithRateLimit overrides the default messages.get rate limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *apiClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type apiClient struct {
	svc     *gmailapi.Service
	limiter *rate.Limiter
}

// NewClient creates a Gmail client authenticated from the given OAuth
// credentials and token files.
func NewClient(ctx context.Context, credentialsFile, tokenFile string, opts ...Option) (Client, error) {
	source, err := tokenSource(ctx, credentialsFile, tokenFile)
	if err != nil {
		return nil, err
	}

	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, eris.Wrap(err, "gmail: create service")
	}

	c := &apiClient{
		svc: svc,
		// Gmail allows 250 quota units/sec per user; messages.get costs 5.
		limiter: rate.NewLimiter(rate.Limit(25), 5),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// FetchSince lists every message matching the candidate query after the given
// time and fetches each in full. Messages that fail to fetch are logged and
// skipped rather than failing the whole scan.
func (c *apiClient) FetchSince(ctx context.Context, after time.Time) ([]Message, error) {
	query := buildQuery(after)
	zap.L().Debug("gmail search", zap.String("query", query))

	var refs []*gmailapi.Message
	call := c.svc.Users.Messages.List("me").Q(query)
	err := call.Pages(ctx, func(page *gmailapi.ListMessagesResponse) error {
		refs = append(refs, page.Messages...)
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "gmail: list messages")
	}

	messages := make([]Message, 0, len(refs))
	for _, ref := range refs {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "gmail: rate limiter")
		}
		full, err := c.svc.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			zap.L().Warn("gmail fetch failed",
				zap.String("message_id", ref.Id),
				zap.Error(err))
			continue
		}
		messages = append(messages, decodeMessage(full))
	}
	return messages, nil
}

func decodeMessage(msg *gmailapi.Message) Message {
	m := Message{ID: msg.Id, ThreadID: msg.ThreadId}

	var dateHeader string
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch h.Name {
			case "Subject":
				m.Subject = h.Value
			case "From":
				m.From = h.Value
			case "Date":
				dateHeader = h.Value
			}
		}
		m.Body = extractBody(msg.Payload)
	}

	if t, err := mail.ParseDate(dateHeader); err == nil {
		m.Date = t.UTC()
	} else if msg.InternalDate > 0 {
		m.Date = time.UnixMilli(msg.InternalDate).UTC()
	} else {
		m.Date = time.Now().UTC()
	}
	return m
}

// extractBody returns the first text/plain part of the payload, preferring the
// top-level body when present.
func extractBody(payload *gmailapi.MessagePart) string {
	if payload.Body != nil && payload.Body.Data != "" {
		return decodeBase64(payload.Body.Data)
	}
	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			return decodeBase64(part.Body.Data)
		}
	}
	// Multipart messages sometimes nest the text part one level down.
	for _, part := range payload.Parts {
		if len(part.Parts) > 0 {
			if body := extractBody(part); body != "" {
				return body
			}
		}
	}
	return ""
}

func decodeBase64(data string) string {
	decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(data)
	if err != nil {
		return ""
	}
	return string(decoded)
}
