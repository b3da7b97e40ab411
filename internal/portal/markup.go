package portal

import (
	"fmt"
	"strings"
	"time"

	"rfpsonar/internal/browser"
	"rfpsonar/internal/models"
	"rfpsonar/pkg/utils"
)

// Element lookup helpers shared by the jurisdiction adapters. Portals rarely
// give their controls stable ids, so most lookups go by visible text or by
// an ordered list of selector candidates.

// findByText returns the first element matching selector whose text contains
// the fragment, case-insensitively.
func findByText(session browser.Session, selector, fragment string) (browser.Element, bool) {
	want := strings.ToLower(fragment)

	for _, el := range session.LocateAll(selector) {
		if strings.Contains(strings.ToLower(el.Text()), want) {
			return el, true
		}
	}

	return nil, false
}

// findLinkExact matches an anchor by its exact trimmed text. Needed where a
// portal offers both "Bids" and "Bids (76502)" style links.
func findLinkExact(session browser.Session, text string) (browser.Element, bool) {
	for _, el := range session.LocateAll("a") {
		if strings.EqualFold(strings.TrimSpace(el.Text()), text) {
			return el, true
		}
	}

	return nil, false
}

// locateFirst tries selectors in order, returning the first match.
func locateFirst(session browser.Session, selectors ...string) (browser.Element, bool) {
	for _, sel := range selectors {
		if el, ok := session.Locate(sel); ok {
			return el, true
		}
	}

	return nil, false
}

// selectWithOption returns the first select element offering an option whose
// text contains the fragment.
func selectWithOption(session browser.Session, fragment string) (browser.Element, bool) {
	want := strings.ToLower(fragment)

	for _, sel := range session.LocateAll("select") {
		for _, opt := range sel.Find("option") {
			if strings.Contains(strings.ToLower(opt.Text()), want) {
				return sel, true
			}
		}
	}

	return nil, false
}

// dataRows filters listing rows down to those carrying at least one data
// cell, dropping header-only rows.
func dataRows(rows []browser.Element) []browser.Element {
	var out []browser.Element

	for _, row := range rows {
		if len(row.Find("td")) == 0 {
			continue
		}

		out = append(out, row)
	}

	return out
}

// synthesizeKey builds a fingerprint for rows whose portal omits a
// solicitation number: <prefix>-YYYYMMDD-<ordinal>. Stable within a day,
// which is the cadence runs happen at.
func synthesizeKey(prefix string, now time.Time, ordinal int) string {
	return fmt.Sprintf("%s-%s-%d", prefix, now.Format("20060102"), ordinal)
}

// fillMissingKeys assigns synthesized solicitation numbers to rows that came
// off the portal without one, numbering them in listing order.
func fillMissingKeys(rows []*models.RawRow, prefix string, now time.Time) {
	for i, raw := range rows {
		if raw.Value(models.FieldNumber) != "" {
			continue
		}

		raw.Set(models.FieldNumber, models.Field{
			Value:      synthesizeKey(prefix, now, i+1),
			Confidence: models.ConfidenceHeuristic,
		})
	}
}

// absolutizeDetailLinks resolves row detail links against the current
// document. Listing markup carries relative hrefs more often than not.
func absolutizeDetailLinks(session browser.Session, rows []*models.RawRow) {
	helper := utils.NewHTTPHelper()
	base := session.CurrentURL()

	for _, raw := range rows {
		field, ok := raw.Get(models.FieldDetailURL)
		if !ok {
			continue
		}

		changed := false

		if field.Link != "" && !helper.IsValidURL(field.Link) {
			if abs := helper.AbsoluteURL(base, field.Link); abs != "" {
				field.Link = abs
				changed = true
			}
		}

		if field.Link == "" && field.Value != "" && !helper.IsValidURL(field.Value) {
			if abs := helper.AbsoluteURL(base, field.Value); abs != "" {
				field.Value = abs
				changed = true
			}
		}

		if changed {
			raw.Set(models.FieldDetailURL, field)
		}
	}
}
