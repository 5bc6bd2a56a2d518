// Package pipeline implements the three-stage processing funnel: a keyword
// pre-filter, a rule-based extractor, and an AI classifier fallback, followed
// by deduplicating merge into the tracked application set.
package pipeline

import (
	"regexp"
	"strings"

	"github.com/jobtrack/jobtrack-cli/internal/model"
)

// mustPassSubjects is the aggressive allow-list: an email whose subject hits
// none of these (and whose sender is not a known ATS) is dropped before any
// AI spend.
var mustPassSubjects = []string{
	"applied",
	"application",
	"thanks for applying",
	"thank you for applying",
	"thank you for your interest",
	"thanks for your interest",
	"your interest",
	"thanks from",
	"follow-up",
	"update",
	"recruiting",
	"we received",
	"we've got your",
	"your application",
	"application is in",
	"application received",
	"interview",
	"offer",
	"unfortunately",
	"next steps",
	"confirmation",
	"confirmed",
	"careers",
	"position",
	"role",
	"candidate",
}

// hardRejectPhrases kill the email no matter what else matches.
var hardRejectPhrases = []string{
	"job alert",
	"jobs you might like",
	"recommended jobs",
	"newsletter",
	"digest",
	"viewed your profile",
	"connection request",
	"do you want to finish your application",
	"you have new application updates this week",
	"matched new opportunities",
	"found jobs",
	"mock interview",
}

// personalDomains never send real application mail.
var personalDomains = map[string]struct{}{
	"gmail.com":   {},
	"yahoo.com":   {},
	"hotmail.com": {},
	"outlook.com": {},
	"icloud.com":  {},
	"aol.com":     {},
}

// jobBoardDomains send aggregated listings, not per-application mail.
var jobBoardDomains = []string{
	"linkedin.com", "indeed.com", "glassdoor.com", "ziprecruiter.com",
}

// atsDomains are applicant tracking systems; mail from them passes even
// without a subject keyword because the subject is often just the company
// name.
var atsDomains = []string{
	"greenhouse.io", "greenhouse-mail.io", "lever.co", "workday.com", "myworkdayjobs.com",
	"ashbyhq.com", "smartrecruiters.com", "jobvite.com", "icims.com",
	"jazz.co", "recruitee.com", "bamboohr.com", "rippling.com", "dover.com",
	"wellfound.com", "cardinalrefer.com", "hire.lever.co", "us.greenhouse-mail.io",
	"myworkday.com", "wd1.myworkday", "wd3.myworkday", "wd5.myworkday",
	"brex.com", "launchdarkly.com", "bytedance.com", "careers.bytedance",
}

var domainPattern = regexp.MustCompile(`@([\w.-]+)`)

// senderDomain extracts the lowercase domain from a From header.
func senderDomain(from string) string {
	m := domainPattern.FindStringSubmatch(strings.ToLower(from))
	if m == nil {
		return ""
	}
	return m[1]
}

// PreFilter decides whether an email can be discarded without extraction.
// An empty reason means the email passes; otherwise the reason describes the
// rejection for the skip log. First match wins.
func PreFilter(email model.CandidateEmail) string {
	subject := strings.ToLower(email.Subject)
	domain := senderDomain(email.From)

	for _, phrase := range hardRejectPhrases {
		if strings.Contains(subject, phrase) {
			return "reject: " + phrase
		}
	}

	if _, ok := personalDomains[domain]; ok {
		return "reject: personal domain"
	}

	for _, board := range jobBoardDomains {
		if strings.Contains(domain, board) {
			return "reject: job board"
		}
	}

	if !containsAny(subject, mustPassSubjects) && !containsAny(domain, atsDomains) {
		return "reject: no application keywords"
	}

	return ""
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
