package gmail

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gmailapi "google.golang.org/api/gmail/v1"
)

func b64(s string) string {
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(s))
}

func TestDecodeMessage_Headers(t *testing.T) {
	msg := &gmailapi.Message{
		Id:       "m1",
		ThreadId: "t1",
		Payload: &gmailapi.MessagePart{
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "Subject", Value: "Your application"},
				{Name: "From", Value: "Stripe <no-reply@stripe.com>"},
				{Name: "Date", Value: "Mon, 16 Mar 2026 10:30:00 -0400"},
			},
			Body: &gmailapi.MessagePartBody{Data: b64("Thanks for applying.")},
		},
	}

	m := decodeMessage(msg)
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, "t1", m.ThreadID)
	assert.Equal(t, "Your application", m.Subject)
	assert.Equal(t, "Stripe <no-reply@stripe.com>", m.From)
	assert.Equal(t, "Thanks for applying.", m.Body)
	assert.Equal(t, time.Date(2026, 3, 16, 14, 30, 0, 0, time.UTC), m.Date)
}

func TestDecodeMessage_FallsBackToInternalDate(t *testing.T) {
	internal := time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC)
	msg := &gmailapi.Message{
		Id:           "m2",
		InternalDate: internal.UnixMilli(),
		Payload: &gmailapi.MessagePart{
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "Date", Value: "not a date"},
			},
		},
	}

	m := decodeMessage(msg)
	assert.Equal(t, internal, m.Date)
}

func TestExtractBody_PrefersTextPlainPart(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmailapi.MessagePart{
			{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: b64("<p>html</p>")}},
			{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64("plain text")}},
		},
	}
	assert.Equal(t, "plain text", extractBody(payload))
}

func TestExtractBody_NestedMultipart(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmailapi.MessagePart{
			{
				MimeType: "multipart/alternative",
				Parts: []*gmailapi.MessagePart{
					{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64("nested text")}},
				},
			},
		},
	}
	assert.Equal(t, "nested text", extractBody(payload))
}

func TestExtractBody_Empty(t *testing.T) {
	assert.Equal(t, "", extractBody(&gmailapi.MessagePart{}))
}
