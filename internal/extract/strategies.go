// Package extract implements ordered-fallback field extraction from portal
// markup. Each field is described by a FieldSpec whose locator strategies are
// tried in order; the first non-empty result wins. Structural locators come
// first where a portal's markup is known stable, label-proximity and regex
// locators catch script-rendered layouts that shift.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"rfpsonar/internal/browser"
	"rfpsonar/internal/models"
)

// Result is one strategy's extracted value with an optional link.
type Result struct {
	Value string
	Link  string
}

// Strategy locates one field value within a row element.
type Strategy interface {
	// Apply extracts from the row. ok is false when nothing matched.
	Apply(row browser.Element) (Result, bool)
	// Confidence classifies how the value was located.
	Confidence() models.Confidence
	// Name identifies the strategy in logs.
	Name() string
}

// CellText locates the text of the cell at a fixed column index, with the
// cell's first anchor href as the link.
func CellText(index int) Strategy {
	return cellText{index: index}
}

type cellText struct {
	index int
}

func (c cellText) Apply(row browser.Element) (Result, bool) {
	cells := row.Find("td")
	if c.index < 0 || c.index >= len(cells) {
		return Result{}, false
	}

	cell := cells[c.index]

	res := Result{Value: strings.TrimSpace(cell.Text())}
	if anchor, ok := cell.First("a"); ok {
		res.Link, _ = anchor.Attr("href")
		if res.Value == "" {
			res.Value = anchor.Text()
		}
	}

	if res.Value == "" {
		return Result{}, false
	}

	return res, true
}

func (c cellText) Confidence() models.Confidence { return models.ConfidenceExact }

func (c cellText) Name() string { return fmt.Sprintf("cell[%d]", c.index) }

// LabelSibling locates a cell whose text contains the label, then takes the
// following cell. Covers detail layouts of the form
// "<td>Solicitation Number</td><td>RFB-123</td>".
func LabelSibling(label string) Strategy {
	return labelSibling{label: strings.ToLower(label)}
}

type labelSibling struct {
	label string
}

func (l labelSibling) Apply(row browser.Element) (Result, bool) {
	cells := row.Find("td, th")
	for i := 0; i+1 < len(cells); i++ {
		if strings.Contains(strings.ToLower(cells[i].Text()), l.label) {
			value := strings.TrimSpace(cells[i+1].Text())
			if value == "" {
				continue
			}

			res := Result{Value: value}
			if anchor, ok := cells[i+1].First("a"); ok {
				res.Link, _ = anchor.Attr("href")
			}

			return res, true
		}
	}

	return Result{}, false
}

func (l labelSibling) Confidence() models.Confidence { return models.ConfidenceHeuristic }

func (l labelSibling) Name() string { return fmt.Sprintf("label(%s)", l.label) }

// RegexText matches a pattern against the row's flattened text and returns
// the given capture group (0 = whole match).
func RegexText(pattern *regexp.Regexp, group int) Strategy {
	return regexText{pattern: pattern, group: group}
}

type regexText struct {
	pattern *regexp.Regexp
	group   int
}

func (r regexText) Apply(row browser.Element) (Result, bool) {
	flat := strings.Join(strings.Fields(row.Text()), " ")

	match := r.pattern.FindStringSubmatch(flat)
	if match == nil || r.group >= len(match) {
		return Result{}, false
	}

	value := strings.TrimSpace(match[r.group])
	if value == "" {
		return Result{}, false
	}

	return Result{Value: value}, true
}

func (r regexText) Confidence() models.Confidence { return models.ConfidenceHeuristic }

func (r regexText) Name() string { return fmt.Sprintf("regex(%s)", r.pattern.String()) }

// FirstAnchor locates the row's first anchor, yielding its text and href.
func FirstAnchor() Strategy {
	return firstAnchor{}
}

type firstAnchor struct{}

func (firstAnchor) Apply(row browser.Element) (Result, bool) {
	anchor, ok := row.First("a")
	if !ok {
		return Result{}, false
	}

	href, _ := anchor.Attr("href")

	res := Result{Value: anchor.Text(), Link: href}
	if res.Value == "" && res.Link == "" {
		return Result{}, false
	}

	return res, true
}

func (firstAnchor) Confidence() models.Confidence { return models.ConfidenceHeuristic }

func (firstAnchor) Name() string { return "anchor" }

// Selector locates the first element matching a CSS selector within the row,
// yielding its text, or the named attribute when attr is non-empty.
func Selector(query string, conf models.Confidence) Strategy {
	return selector{query: query, conf: conf}
}

// SelectorAttr is Selector reading an attribute instead of text.
func SelectorAttr(query, attr string, conf models.Confidence) Strategy {
	return selector{query: query, attr: attr, conf: conf}
}

type selector struct {
	query string
	attr  string
	conf  models.Confidence
}

func (s selector) Apply(row browser.Element) (Result, bool) {
	el, ok := row.First(s.query)
	if !ok {
		return Result{}, false
	}

	var value string
	if s.attr != "" {
		value, _ = el.Attr(s.attr)
	} else {
		value = el.Text()
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return Result{}, false
	}

	res := Result{Value: value}
	if s.attr == "" {
		if anchor, ok := el.First("a"); ok {
			res.Link, _ = anchor.Attr("href")
		}
	}

	return res, true
}

func (s selector) Confidence() models.Confidence { return s.conf }

func (s selector) Name() string { return fmt.Sprintf("selector(%s)", s.query) }

// RowText yields the row's own flattened text, optionally capped to a rune
// budget. Last-resort strategy for layouts with no per-field structure.
func RowText(maxRunes int) Strategy {
	return rowText{maxRunes: maxRunes}
}

type rowText struct {
	maxRunes int
}

func (r rowText) Apply(row browser.Element) (Result, bool) {
	value := strings.Join(strings.Fields(row.Text()), " ")
	if value == "" {
		return Result{}, false
	}

	if r.maxRunes > 0 {
		runes := []rune(value)
		if len(runes) > r.maxRunes {
			value = string(runes[:r.maxRunes])
		}
	}

	return Result{Value: value}, true
}

func (r rowText) Confidence() models.Confidence { return models.ConfidenceHeuristic }

func (r rowText) Name() string { return "rowtext" }
