package pipeline

import (
	"regexp"
	"strings"

	"github.com/jobtrack/jobtrack-cli/internal/model"
	"github.com/jobtrack/jobtrack-cli/internal/normalize"
)

// ruleConfidence is reported for every rule extraction; the rules only fire
// on unambiguous patterns.
const ruleConfidence = 0.85

// workdayLocalToCompany resolves the local part of myworkday sender addresses
// (disney@myworkday.com) to company names the heuristics cannot derive.
var workdayLocalToCompany = []struct{ local, company string }{
	{"disney", "Walt Disney Company"},
	{"statestreet", "State Street"},
	{"activision", "Activision Blizzard King"},
	{"relx", "Elsevier"},
	{"tmobile", "T-Mobile"},
	{"abcfitness", "ABC Fitness Solutions"},
	{"abcworkday", "ABC Fitness Solutions"},
}

// domainToCompany maps known sender domains to companies. Ordered so matching
// is deterministic.
var domainToCompany = []struct{ domain, company string }{
	{"brex.com", "Brex"},
	{"launchdarkly.com", "LaunchDarkly"},
	{"bytedance.com", "ByteDance"},
	{"careers.bytedance.com", "ByteDance"},
	{"sigmacomputing.com", "Sigma Computing"},
	{"zoox.com", "Zoox"},
	{"scale.com", "Scale AI"},
	{"multiplylabs.com", "Multiply Labs"},
	{"spotandtango.com", "Spot & Tango"},
	{"amazon.com", "Amazon"},
	{"amazon.jobs", "Amazon"},
	{"google.com", "Google"},
	{"meta.com", "Meta"},
	{"facebook.com", "Meta"},
	{"microsoft.com", "Microsoft"},
	{"apple.com", "Apple"},
	{"stripe.com", "Stripe"},
	{"uber.com", "Uber"},
	{"lyft.com", "Lyft"},
	{"airbnb.com", "Airbnb"},
	{"netflix.com", "Netflix"},
	{"adobe.com", "Adobe"},
	{"salesforce.com", "Salesforce"},
	{"oracle.com", "Oracle"},
	{"intel.com", "Intel"},
	{"nvidia.com", "NVIDIA"},
	{"amd.com", "AMD"},
	{"qualcomm.com", "Qualcomm"},
	{"ibm.com", "IBM"},
	{"dell.com", "Dell"},
	{"hp.com", "HP"},
	{"vmware.com", "VMware"},
	{"servicenow.com", "ServiceNow"},
	{"workday.com", "Workday"},
	{"sap.com", "SAP"},
	{"jpmorgan.com", "JPMorgan"},
	{"jpmchase.com", "JPMorgan"},
	{"goldmansachs.com", "Goldman Sachs"},
	{"morganstanley.com", "Morgan Stanley"},
	{"twilio.com", "Twilio"},
	{"databricks.com", "Databricks"},
	{"snowflake.com", "Snowflake"},
	{"mongodb.com", "MongoDB"},
	{"atlassian.com", "Atlassian"},
	{"slack.com", "Slack"},
	{"dropbox.com", "Dropbox"},
	{"box.com", "Box"},
	{"zoom.us", "Zoom"},
	{"roblox.com", "Roblox"},
	{"unity.com", "Unity"},
	{"epicgames.com", "Epic Games"},
	{"tesla.com", "Tesla"},
	{"spacex.com", "SpaceX"},
}

// atsSubdomainPatterns pull the company slug out of ATS-hosted sender domains
// (acme.greenhouse.io, acme.myworkdayjobs.com).
var atsSubdomainPatterns = []*regexp.Regexp{
	regexp.MustCompile(`([a-z0-9-]+)\.lever\.co`),
	regexp.MustCompile(`([a-z0-9-]+)\.greenhouse\.io`),
	regexp.MustCompile(`([a-z0-9-]+)\.myworkdayjobs\.com`),
	regexp.MustCompile(`([a-z0-9-]+)\.workday\.com`),
	regexp.MustCompile(`([a-z0-9-]+)\.ashbyhq\.com`),
	regexp.MustCompile(`([a-z0-9-]+)\.jobs\.ashbyhq\.com`),
	regexp.MustCompile(`([a-z0-9-]+)\.recruitee\.com`),
	regexp.MustCompile(`([a-z0-9-]+)\.rippling\.com`),
	regexp.MustCompile(`([a-z0-9-]+)\.dover\.io`),
}

// roleSubjectPatterns extract the role title from the subject line. Ordered
// by specificity; first match wins.
var roleSubjectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)thank\s+you\s+for\s+your\s+interest\s+[-–—]\s+([^,\n]+?)(?:\s*,\s*Summer\s+\d{4}|\s+\d{6,}|\s*$)`),
	regexp.MustCompile(`(?i)(?:thank you for your interest in|opening here at)\s+[\w\s]+:\s*([^.\n]{10,80})`),
	regexp.MustCompile(`(?i)(?:application|applied)\s+(?:for|to)\s+(?:the\s+)?(.+?)\s+(?:position\s+)?(?:at|@)`),
	regexp.MustCompile(`(?i)(.+?)\s+[-–—]\s+(?:application|applied)`),
	regexp.MustCompile(`(?i)update\s+for\s+REQ\d+\s+(.+?)(?:\s*$|!)`),
	regexp.MustCompile(`(?i)(?:position|role):\s*(.+?)(?:\s+at|\s*$)`),
	regexp.MustCompile(`(?i)(.+?)\s+(?:intern|engineer|developer|analyst|manager)\s*(?:position|role)?\s*(?:at|@)`),
	regexp.MustCompile(`(?i)your\s+application\s+for\s+(.+?)(?:\s+at|\s*$)`),
	regexp.MustCompile(`(?i)for\s+the\s+([\w\s,-]{5,60}?)\s+(?:role|position)`),
	regexp.MustCompile(`(?i)(?:role:\s*|position:\s*)([\w\s,-]{5,60}?)(?:\s+at|\s*[-–|]|$)`),
	regexp.MustCompile(`(?i)(?:we've got your)\s+[\w\s]+\s+application\s+[-–—]?\s*(.+?)(?:\s*$|!)`),
	regexp.MustCompile(`(?i)(software engineer|data engineer|product manager|ml engineer|machine learning|data scientist|backend|frontend|full.?stack|technical product management intern)`),
}

// roleBodyPatterns are tried when the subject yields no role.
var roleBodyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:interest in the)\s+([^.\n]{5,80}?)(?:\s+position\.|\s*\.)`),
	regexp.MustCompile(`(?i)([\w\s,-]+(?:intern|engineer|manager|analyst|developer|pm|product management)[\w\s,-]*)\s+opening\s+here\s+at`),
	regexp.MustCompile(`(?i)(?:applying for|application for|we received your application for|reviewing your application for)\s+([^.\n]{5,80}?)(?:\s+position|\s+at|\s+here|\s*$|\.)`),
	regexp.MustCompile(`(?i)(?:position|role):\s*([^\n,]{5,80})`),
	regexp.MustCompile(`(?i)([\w\s-]+(?:intern|engineer|manager|analyst|developer))(?:\s+position|\s+at|\s*$)`),
	regexp.MustCompile(`(?i)([\w\s&]+(?:intern|engineer|manager|analyst|developer)[\w\s,/-]*(?:Summer|Fall|Winter)[\s/]*\d{4})`),
	regexp.MustCompile(`(?i)([\w\s]+(?:Summer|Fall|Winter)\s+\d{4}\s+[-–]\s+[\w\s]+)`),
	regexp.MustCompile(`(?i)role of\s+([^\n.]{5,80})`),
	regexp.MustCompile(`(?i)(\d{4}\s+US Summer Internships\s+[-–]\s+[^\n]+)`),
}

// bodyCompanyATSPatterns find the company in the body of ATS mail whose
// sender domain carries no company slug (notifications@greenhouse, Karat).
var bodyCompanyATSPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:thanks? for applying to|thank you for applying to)\s+([A-Za-z0-9\s&]+?)(?:\.|\.\s|Your|\s+Your)`),
	regexp.MustCompile(`(?i)opening\s+here\s+at\s+([A-Za-z0-9\s&]+?)(?:\s*\.|$|\s+Unfortunately)`),
	regexp.MustCompile(`(?i)application\s+to\s+([A-Z][a-zA-Z0-9\s&.-]{2,40})`),
}

var (
	bodyCompanyAtPattern  = regexp.MustCompile(`(?:at|from|@)\s+([A-Z][a-zA-Z0-9\s&.-]{2,40}?)(?:\s+(?:for|–|-|\n)|\.)`)
	bodyCompanyForPattern = regexp.MustCompile(`(?i)for (?:the )?[\w\s]+ (?:position|role) at ([A-Za-z0-9\s&.-]{2,50})`)
	localPartPattern      = regexp.MustCompile(`^([^@]+)@`)
	trailingReqID         = regexp.MustCompile(`\s+\d{6,}\s*$`)
	trailingPosition      = regexp.MustCompile(`(?i)\s+position\s*$`)
	recruitingPrefix      = regexp.MustCompile(`^(jobs|recruiting|careers|talent)\.`)
)

// stage keyword buckets, checked in order of decisiveness.
var (
	rejectedKeywords = []string{
		"unfortunately", "not selected", "not moving forward", "declined", "we've decided",
		"other candidates", "position filled", "pursue other", "not be considered",
	}
	offerKeywords      = []string{"offer", "pleased to offer", "we'd like to extend"}
	interviewKeywords  = []string{"interview", "phone screen", "onsite", "technical interview", "schedule a call", "video call"}
	assessmentKeywords = []string{"assessment", "coding challenge", "online test", "codesignal", "hackerrank"}
	appliedKeywords    = []string{"application received", "we received your", "thank you for applying", "submitted successfully"}
)

// Extractor derives application records from sender and subject patterns with
// no AI involvement. Extra domain mappings come from the user rules file.
type Extractor struct {
	extraDomains map[string]string
}

// NewExtractor creates a rule extractor with optional user-supplied
// domain-to-company overrides.
func NewExtractor(extraDomains map[string]string) *Extractor {
	return &Extractor{extraDomains: extraDomains}
}

// TryExtract attempts rule-based extraction. A false return means the rules
// could not identify the company and the email needs the AI classifier.
func (e *Extractor) TryExtract(email model.CandidateEmail) (model.ExtractedRecord, bool) {
	subject := strings.TrimSpace(email.Subject)
	body := email.Body
	if len(body) > 2000 {
		body = body[:2000]
	}

	domain := senderDomain(email.From)
	company := e.companyFromDomain(domain, email.From)
	if company == "" {
		company = companyFromBody(email.From, body)
	}
	if company == "" {
		return model.ExtractedRecord{}, false
	}

	// Subject and body matchers enforce their own length floors (short
	// subject titles like SDET are legitimate; body captures are noisier
	// and need more characters to be trusted).
	role := roleFromSubject(subject)
	if role == "" {
		role = roleFromBody(body)
	}
	if role == "" {
		role = "Unknown Role"
	}

	stageText := subject + " " + truncate(body, 500)
	combined := strings.ToLower(subject + body)

	notes := subject
	if len(notes) > 80 {
		notes = notes[:80]
	}

	return model.ExtractedRecord{
		Company:      company,
		Role:         role,
		Stage:        stageFromText(stageText),
		OccurredDate: email.Date.UTC().Format("2006-01-02"),
		Notes:        "Extracted from: " + notes,
		IsInternship: strings.Contains(combined, "intern"),
		Confidence:   ruleConfidence,
	}, true
}

func (e *Extractor) companyFromDomain(domain, from string) string {
	if domain == "" {
		return ""
	}
	base := strings.ToLower(strings.SplitN(domain, "/", 2)[0])

	// Workday senders put the company in the local part.
	if strings.Contains(base, "workday") {
		local := localPart(from)
		for _, entry := range workdayLocalToCompany {
			if strings.Contains(local, entry.local) || strings.HasPrefix(local, entry.local) {
				return entry.company
			}
		}
		if local != "" && local != "noreply" && local != "no-reply" && local != "donotreply" {
			return titleizeSlug(local)
		}
	}

	if company, ok := e.extraDomains[base]; ok {
		return company
	}
	for _, entry := range domainToCompany {
		if strings.Contains(base, entry.domain) || strings.HasSuffix(base, "."+entry.domain) {
			return entry.company
		}
	}

	// ATS subdomains, except relay hosts whose slug is not a company.
	if !(strings.Contains(base, "lever.co") && strings.HasPrefix(base, "hire.")) {
		for _, pattern := range atsSubdomainPatterns {
			m := pattern.FindStringSubmatch(base)
			if m == nil {
				continue
			}
			name := titleizeSlug(m[1])
			lower := strings.ToLower(name)
			if len(name) > 2 && lower != "hire" && lower != "jobs" && lower != "careers" {
				return name
			}
		}
	}

	// jobs.acme.com and friends: the company is the next label.
	if recruitingPrefix.MatchString(base) {
		core := recruitingPrefix.ReplaceAllString(base, "")
		if i := strings.Index(core, "."); i >= 0 {
			core = core[:i]
		}
		if len(core) > 2 {
			return titleizeSlug(core)
		}
	}

	// Plain corporate domain: first label is usually the company.
	if strings.Count(base, ".") >= 1 && !containsAny(base, []string{"greenhouse", "lever", "workday", "ashby"}) {
		first := strings.SplitN(base, ".", 2)[0]
		switch first {
		case "mail", "email", "no-reply", "noreply", "careers", "jobs", "hire", "us":
		default:
			if len(first) > 2 {
				return titleizeSlug(first)
			}
		}
	}
	return ""
}

func companyFromBody(from, body string) string {
	lowerFrom := strings.ToLower(from)
	if containsAny(lowerFrom, []string{"greenhouse", "lever", "karat"}) {
		for _, pattern := range bodyCompanyATSPatterns {
			if m := pattern.FindStringSubmatch(body); m != nil {
				company := normalize.Company(strings.TrimSpace(m[1]))
				if len(company) > 2 {
					return company
				}
			}
		}
	}
	if m := bodyCompanyAtPattern.FindStringSubmatch(body); m != nil {
		if company := normalize.Company(m[1]); company != "" {
			return company
		}
	}
	if m := bodyCompanyForPattern.FindStringSubmatch(body); m != nil {
		if company := normalize.Company(m[1]); company != "" {
			return company
		}
	}
	return ""
}

func roleFromSubject(subject string) string {
	for _, pattern := range roleSubjectPatterns {
		m := pattern.FindStringSubmatch(subject)
		if m == nil {
			continue
		}
		role := strings.TrimSpace(m[1])
		if len(role) > 3 && len(role) < 100 {
			return strings.TrimSpace(trailingReqID.ReplaceAllString(role, ""))
		}
	}
	return ""
}

func roleFromBody(body string) string {
	for _, pattern := range roleBodyPatterns {
		m := pattern.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		role := strings.TrimSpace(m[1])
		if len(role) > 100 {
			role = role[:100]
		}
		if len(role) <= 5 {
			continue
		}
		lower := strings.ToLower(role)
		if containsAny(lower, []string{"delighted", "interest", " by your", " we ", "thank you"}) {
			continue
		}
		return strings.TrimSpace(trailingPosition.ReplaceAllString(role, ""))
	}
	return ""
}

// stageFromText maps keywords to a stage, most decisive bucket first. A text
// with no signal defaults to Applied.
func stageFromText(text string) model.Stage {
	t := strings.ToLower(text)
	switch {
	case containsAny(t, rejectedKeywords):
		return model.StageRejected
	case containsAny(t, offerKeywords):
		return model.StageOffer
	case containsAny(t, interviewKeywords):
		return model.StageInterviewScheduled
	case containsAny(t, assessmentKeywords):
		return model.StageAssessment
	case containsAny(t, appliedKeywords):
		return model.StageApplied
	default:
		return model.StageApplied
	}
}

func localPart(from string) string {
	m := localPartPattern.FindStringSubmatch(strings.ToLower(from))
	if m == nil {
		return ""
	}
	return m[1]
}

var slugSeparators = strings.NewReplacer(".", " ", "-", " ", "_", " ")

func titleizeSlug(slug string) string {
	return normalize.Title(slugSeparators.Replace(slug))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
