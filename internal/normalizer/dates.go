package normalizer

import (
	"strings"
	"time"
)

// fallbackCloseDays is how far in the future the close date is pushed when
// a portal date cannot be parsed. Unparseable dates must never drop a record.
const fallbackCloseDays = 30

// dateLayouts are tried in order. Go reference-time layouts with unpadded
// components also accept zero-padded input, so "01/02/2025" parses under
// "1/2/2006".
var dateLayouts = []string{
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04",
	"1/2/2006",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1-2-2006",
	"1/2/06",
	"January 2, 2006",
	"Jan 2, 2006",
}

// DateNormalizer parses the portal date formats seen across jurisdictions
// and renders the canonical YYYY-MM-DD wire form.
type DateNormalizer struct{}

// NewDateNormalizer creates a date normalizer.
func NewDateNormalizer() *DateNormalizer {
	return &DateNormalizer{}
}

// Parse attempts to parse raw portal date text. Layouts are tried in order;
// if none match the whole string, the first whitespace-separated token is
// retried so trailing time zones and annotations ("03:30 PM EDT") do not
// defeat the date portion.
func (n *DateNormalizer) Parse(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}

	// Retry with the leading token only.
	if token, _, found := strings.Cut(trimmed, " "); found {
		token = strings.TrimSpace(token)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, token); err == nil {
				return t, true
			}
		}
	}

	return time.Time{}, false
}

// FallbackCloseDate returns the close date used when a portal date is
// missing or unparseable: a fixed window into the future from now.
func (n *DateNormalizer) FallbackCloseDate(now time.Time) time.Time {
	return now.AddDate(0, 0, fallbackCloseDays)
}

// FormatCloseDate renders a close date in the record store's date form.
func (n *DateNormalizer) FormatCloseDate(t time.Time) string {
	return t.Format("2006-01-02")
}
