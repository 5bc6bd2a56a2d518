package gmail

import (
	"strings"
	"time"
)

// subjectTerms matches any subject line a job-application email is likely to
// carry. Broad on purpose; the pre-filter downstream narrows the set.
var subjectTerms = []string{
	`subject:application`, `subject:applied`, `subject:apply`, `subject:interview`,
	`subject:assessment`, `subject:offer`, `subject:unfortunately`, `subject:regret`,
	`subject:position`, `subject:role`, `subject:opportunity`, `subject:candidate`,
	`subject:hiring`, `subject:recruit`, `subject:decision`, `subject:congratulations`,
	`subject:rejection`, `subject:declined`, `subject:onsite`,
	`subject:"thank you for applying"`, `subject:"your application"`, `subject:"application received"`,
	`subject:"moving forward"`, `subject:"next steps"`, `subject:"keep your resume"`,
	`subject:"future opportunities"`, `subject:"phone screen"`, `subject:"technical screen"`,
	`subject:"coding challenge"`, `subject:"take home"`, `subject:"final round"`,
	`subject:"reference check"`, `subject:"background check"`, `subject:"start date"`,
	`subject:"not selected"`, `subject:"other candidates"`,
}

// fromTerms matches ATS platforms, job boards, and generic recruiting senders.
var fromTerms = []string{
	`from:greenhouse`, `from:lever`, `from:workday`, `from:ashbyhq`, `from:icims`,
	`from:taleo`, `from:smartrecruiters`, `from:jobvite`, `from:myworkdayjobs`,
	`from:successfactors`, `from:brassring`, `from:bamboohr`, `from:recruitee`,
	`from:pinpointhq`, `from:dover`, `from:rippling`, `from:jobscore`, `from:ultipro`,
	`from:oracle`, `from:sapjobs`, `from:eightfold`, `from:beamery`, `from:phenom`,
	`from:jobscan`, `from:simplyhired`, `from:ziprecruiter`, `from:indeed`,
	`from:linkedin`, `from:glassdoor`, `from:wellfound`, `from:angellist`, `from:handshake`,
	`from:careers`, `from:hiring`, `from:talent`, `from:recruit`, `from:noreply`,
	`from:donotreply`, `from:"no-reply"`, `from:notification`, `from:jobs`, `from:hr`,
	`from:people`, `from:team`,
}

// exclusions drops job alerts, newsletters, trash, and spam. LinkedIn itself
// stays in scope because real application mail comes through it.
const exclusions = `-subject:"job alert" -subject:"jobs you may like" -subject:"recommended jobs" ` +
	`-subject:"people also viewed" -subject:newsletter -subject:unsubscribe ` +
	`-in:trash -in:spam`

// buildQuery composes the full Gmail search expression for messages after the
// given time.
func buildQuery(after time.Time) string {
	var b strings.Builder
	b.WriteString("after:")
	b.WriteString(after.UTC().Format("2006/01/02"))
	b.WriteString(" (")
	b.WriteString(strings.Join(subjectTerms, " OR "))
	b.WriteString(" OR ")
	b.WriteString(strings.Join(fromTerms, " OR "))
	b.WriteString(") ")
	b.WriteString(exclusions)
	return b.String()
}
