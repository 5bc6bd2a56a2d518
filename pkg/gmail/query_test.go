package gmail

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildQuery(t *testing.T) {
	after := time.Date(2026, 3, 15, 23, 30, 0, 0, time.UTC)
	q := buildQuery(after)

	assert.True(t, strings.HasPrefix(q, "after:2026/03/15 ("))
	assert.Contains(t, q, `subject:"thank you for applying"`)
	assert.Contains(t, q, "from:greenhouse")
	assert.Contains(t, q, " OR ")
	assert.Contains(t, q, `-subject:"job alert"`)
	assert.Contains(t, q, "-in:spam")

	assert.Equal(t, strings.Count(q, "("), strings.Count(q, ")"))
}

func TestBuildQuery_DateIsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+14", 14*3600)
	after := time.Date(2026, 3, 16, 10, 0, 0, 0, loc) // 2026-03-15 in UTC
	q := buildQuery(after)
	assert.Contains(t, q, "after:2026/03/15")
}
