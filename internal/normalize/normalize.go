// Package normalize canonicalizes company and role strings so that the same
// application seen through different emails resolves to one tracked entry.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.AmericanEnglish)

// legalSuffixes are stripped from company names before alias lookup.
var legalSuffixes = func() []*regexp.Regexp {
	patterns := []string{
		`\s+LLC\b`,
		`\s+Inc\.?\b`,
		`\s+Corp\.?\b`,
		`\s+Ltd\.?\b`,
		`\s+Co\.?\b`,
		`\s+L\.L\.C\.?\b`,
		`\s+Incorporated\b`,
		`\s+Corporation\b`,
		`\s+Limited\b`,
		`\s+PLC\b`,
		`\s+LLP\b`,
		`\s+LP\b`,
		`\s+GmbH\b`,
		`\s+AG\b`,
	}
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}()

// companyAliases maps a cleaned, lower-cased company name to its canonical
// display form. Extended at startup via AddAliases.
var companyAliases = map[string]string{
	"google":                          "Google",
	"alphabet":                        "Google",
	"meta platforms":                  "Meta",
	"meta":                            "Meta",
	"amazon.com services":             "Amazon",
	"amazon":                          "Amazon",
	"amazon web services":             "AWS",
	"aws":                             "AWS",
	"microsoft corporation":           "Microsoft",
	"microsoft":                       "Microsoft",
	"apple inc":                       "Apple",
	"apple":                           "Apple",
	"jpmorgan chase":                  "JPMorgan",
	"j.p. morgan":                     "JPMorgan",
	"jpmorgan":                        "JPMorgan",
	"goldman sachs & co":              "Goldman Sachs",
	"goldman sachs":                   "Goldman Sachs",
	"international business machines": "IBM",
	"ibm":                             "IBM",
}

// roleNoise lists tokens dropped from roles before matching: employment type,
// location mode, and seniority markers that vary across emails for the same
// opening.
var roleNoise = map[string]struct{}{
	"intern": {}, "internship": {}, "co-op": {}, "coop": {},
	"full-time": {}, "part-time": {}, "fulltime": {}, "parttime": {},
	"remote": {}, "hybrid": {}, "contract": {}, "contractor": {},
	"i": {}, "ii": {}, "iii": {}, "sr": {}, "jr": {},
	"senior": {}, "junior": {}, "associate": {}, "lead": {},
	"staff": {}, "principal": {},
}

// roleEquivalents folds variant spellings to a canonical form. The first
// member of each group is canonical; matching is substring containment in
// either direction.
var roleEquivalents = [][]string{
	{"software engineer", "software developer", "swe", "software engineering"},
	{"software engineering intern", "software developer intern", "swe intern"},
	{"product management intern", "product manager intern", "pm intern"},
	{"data science intern", "data scientist intern"},
	{"machine learning", "ml"},
	{"artificial intelligence", "ai"},
	{"full stack", "fullstack", "full-stack"},
	{"front end", "frontend", "front-end"},
	{"back end", "backend", "back-end"},
}

var whitespace = regexp.MustCompile(`\s+`)

// AddAliases extends the company alias table with user-supplied entries.
// Keys are lower-cased; existing entries are overridden. Call once at
// startup before any pipeline work.
func AddAliases(aliases map[string]string) {
	for k, v := range aliases {
		companyAliases[strings.ToLower(strings.TrimSpace(k))] = v
	}
}

// Company normalizes a raw company name into its display form: legal-entity
// suffixes stripped, whitespace collapsed, alias table applied, otherwise
// title-cased. Empty input yields an empty string.
func Company(raw string) string {
	s := strings.TrimSpace(raw)
	for _, re := range legalSuffixes {
		s = re.ReplaceAllString(s, "")
	}
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	if s == "" {
		return ""
	}
	if display, ok := companyAliases[strings.ToLower(s)]; ok {
		return display
	}
	return titleCaser.String(s)
}

// Title renders a phrase in display title case.
func Title(s string) string {
	return titleCaser.String(s)
}

// CompanyKey returns the matching key for a company: the lower-cased,
// trimmed display form. Never shown to users.
func CompanyKey(raw string) string {
	return strings.ToLower(strings.TrimSpace(Company(raw)))
}

// RoleKey returns the lossy matching key for a role: lower-cased, noise
// tokens dropped, equivalence groups folded to their canonical member.
// Never shown to users.
func RoleKey(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	var kept []string
	for _, w := range strings.Fields(s) {
		if _, noisy := roleNoise[w]; !noisy {
			kept = append(kept, w)
		}
	}
	s = strings.Join(kept, " ")
	for _, group := range roleEquivalents {
		canonical := group[0]
		for _, variant := range group[1:] {
			if s != "" && (strings.Contains(s, variant) || strings.Contains(variant, s)) {
				s = canonical
				break
			}
		}
	}
	return s
}

// RoleTokenOverlap computes the Jaccard similarity of the token sets of two
// roles after RoleKey normalization. Returns 0 if either side normalizes to
// nothing.
func RoleTokenOverlap(a, b string) float64 {
	ta := tokenSet(RoleKey(a))
	tb := tokenSet(RoleKey(b))
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	var intersection int
	for t := range ta {
		if _, ok := tb[t]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range strings.Fields(s) {
		out[t] = struct{}{}
	}
	return out
}
