package pipeline

import (
	"regexp"
	"strings"
)

// maxBodyWords caps the cleaned body before it is sent to the classifier.
const maxBodyWords = 400

var (
	htmlTag        = regexp.MustCompile(`<[^>]+>`)
	quotedIntro    = regexp.MustCompile(`^On .+ wrote:?$`)
	multiBlankLine = regexp.MustCompile(`\n{3,}`)
	multiSpace     = regexp.MustCompile(` {2,}`)

	// footerOnly matches lines that carry nothing but boilerplate. Lines that
	// merely contain these phrases alongside real content are kept.
	footerOnly = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^unsubscribe\s*$`),
		regexp.MustCompile(`(?i)^privacy policy\s*$`),
		regexp.MustCompile(`(?i)^terms of service\s*$`),
		regexp.MustCompile(`(?i)^all rights reserved\s*$`),
		regexp.MustCompile(`(?i)^manage your email preferences\s*$`),
	}
)

var htmlEntities = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
)

// CleanBody strips HTML, quoted replies, and footer boilerplate, then
// truncates to a token-friendly length. Everything after a quoted-reply
// introduction line is dropped.
func CleanBody(body string) string {
	if body == "" {
		return ""
	}

	text := htmlTag.ReplaceAllString(body, " ")
	text = htmlEntities.Replace(text)

	var cleaned []string
lines:
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") || strings.HasPrefix(line, "|") {
			continue
		}
		if quotedIntro.MatchString(line) {
			break
		}
		if len(line) < 100 {
			for _, p := range footerOnly {
				if p.MatchString(line) {
					continue lines
				}
			}
		}
		cleaned = append(cleaned, line)
	}

	result := strings.Join(cleaned, "\n")
	result = multiBlankLine.ReplaceAllString(result, "\n\n")
	result = multiSpace.ReplaceAllString(result, " ")

	words := strings.Fields(result)
	if len(words) > maxBodyWords {
		result = strings.Join(words[:maxBodyWords], " ") + "\n[...truncated...]"
	}
	return strings.TrimSpace(result)
}
