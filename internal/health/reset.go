package health

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	resetHoursRe   = regexp.MustCompile(`(\d+)h`)
	resetMinutesRe = regexp.MustCompile(`(\d+)m`)
	resetSecondsRe = regexp.MustCompile(`([\d.]+)s`)
)

// parseResetDuration turns a rate-limit reset header value into whole
// seconds. Providers disagree on the format: OpenAI-style APIs send
// duration strings ("1m30s", "6s"), Anthropic sends an RFC 3339
// timestamp, and some send a bare number of seconds. The function is
// total: anything unparseable maps to 60, and any parsed value
// clamps to at least 1.
func parseResetDuration(value string, now time.Time) int {
	if value == "" {
		return 60
	}

	// Timestamps carry a date/time separator.
	if strings.Contains(value, "T") {
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return 60
		}
		return clampSeconds(t.Sub(now).Seconds())
	}

	total := 0.0
	matched := false
	if m := resetHoursRe.FindStringSubmatch(value); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			total += float64(n) * 3600
			matched = true
		}
	}
	if m := resetMinutesRe.FindStringSubmatch(value); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			total += float64(n) * 60
			matched = true
		}
	}
	if m := resetSecondsRe.FindStringSubmatch(value); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			total += f
			matched = true
		}
	}
	if matched {
		return clampSeconds(total)
	}

	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return clampSeconds(f)
	}

	return 60
}

func clampSeconds(f float64) int {
	n := int(f)
	if n < 1 {
		return 1
	}
	return n
}
