package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jobtrack/jobtrack-cli/internal/model"
)

func email(subject, from string) model.CandidateEmail {
	return model.CandidateEmail{ID: "e1", Subject: subject, From: from}
}

func TestPreFilter_PassesApplicationMail(t *testing.T) {
	tests := []model.CandidateEmail{
		email("Thank you for applying to Stripe", "no-reply@stripe.com"),
		email("Your application was received", "careers@acme.com"),
		email("Interview availability", "recruiting@databricks.com"),
		email("Next steps for your candidacy", "talent@initech.com"),
	}
	for _, e := range tests {
		assert.Empty(t, PreFilter(e), "subject %q", e.Subject)
	}
}

func TestPreFilter_HardRejects(t *testing.T) {
	tests := []struct {
		e    model.CandidateEmail
		want string
	}{
		{email("Your weekly job alert", "jobs@somewhere.com"), "reject: job alert"},
		{email("Jobs you might like this week", "digest@somewhere.com"), "reject: jobs you might like"},
		{email("Someone viewed your profile", "notify@somewhere.com"), "reject: viewed your profile"},
		{email("Free mock interview session", "coach@somewhere.com"), "reject: mock interview"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PreFilter(tt.e), "subject %q", tt.e.Subject)
	}
}

func TestPreFilter_HardRejectBeatsKeywords(t *testing.T) {
	// "application" would pass the allow-list, but the hard reject fires first.
	e := email("Job alert: new application deadlines", "careers@acme.com")
	assert.Equal(t, "reject: job alert", PreFilter(e))
}

func TestPreFilter_PersonalDomains(t *testing.T) {
	e := email("Your application update", "someone@gmail.com")
	assert.Equal(t, "reject: personal domain", PreFilter(e))
}

func TestPreFilter_JobBoards(t *testing.T) {
	e := email("Your application was sent", "jobs-noreply@linkedin.com")
	assert.Equal(t, "reject: job board", PreFilter(e))
}

func TestPreFilter_NoKeywordsNoATS(t *testing.T) {
	e := email("Quarterly earnings report", "ir@somecorp.com")
	assert.Equal(t, "reject: no application keywords", PreFilter(e))
}

func TestPreFilter_ATSSenderPassesWithoutKeywords(t *testing.T) {
	// ATS mail often carries just the company name in the subject.
	e := email("Acme", "no-reply@acme.greenhouse.io")
	assert.Empty(t, PreFilter(e))
}

func TestSenderDomain(t *testing.T) {
	assert.Equal(t, "stripe.com", senderDomain("Stripe Careers <no-reply@stripe.com>"))
	assert.Equal(t, "acme.greenhouse.io", senderDomain("jobs@acme.greenhouse.io"))
	assert.Equal(t, "", senderDomain("not an address"))
}
