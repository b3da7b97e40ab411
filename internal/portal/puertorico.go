package portal

import (
	"context"
	"fmt"
	"time"

	"rfpsonar/internal/browser"
	"rfpsonar/internal/extract"
	"rfpsonar/internal/logger"
	"rfpsonar/internal/models"
)

// puertoRicoCascade is tried in order; the first selector yielding rows
// wins. The portal has shipped as a plain table, as procurement-classed
// divs, and as a list, depending on redesign. Tabular entries get header
// rows dropped before counting.
var puertoRicoCascade = []struct {
	selector string
	tabular  bool
}{
	{"table tbody tr", true},
	{"table tr", true},
	{".procurement-item, .procurement-row, [class*=procurement]", false},
	{"ul.procurement-list li, .procurement-list > div", false},
}

// PuertoRico scrapes the recovery-program procurement portal. The portal is
// bilingual and restyled often, so both the listing and its fields are
// located through ordered cascades rather than fixed selectors. Rows the
// portal publishes without a solicitation number get a synthesized key.
// A page where no cascade matches anything is a fatal failure: it means
// the portal shape changed beyond what the cascades absorb.
type PuertoRico struct {
	GuestAccess
	SinglePage

	pipeline *extract.Pipeline
	log      *logger.Logger
	now      func() time.Time
}

var _ Adapter = (*PuertoRico)(nil)

// NewPuertoRico creates the PuertoRico adapter.
func NewPuertoRico(pipeline *extract.Pipeline, log *logger.Logger) *PuertoRico {
	return &PuertoRico{
		pipeline: pipeline,
		log:      log.With("adapter", JurisdictionPuertoRico),
		now:      time.Now,
	}
}

// ID returns the jurisdiction identifier.
func (p *PuertoRico) ID() string { return JurisdictionPuertoRico }

// NavigateToListing narrows the listing to active procurements, best-effort.
func (p *PuertoRico) NavigateToListing(ctx context.Context, session browser.Session) error {
	p.applyStatusFilter(ctx, session)

	return nil
}

// applyStatusFilter selects "Active" in the status dropdown when one can be
// found. The default view includes active rows too, so every miss here just
// means more rows to dedup.
func (p *PuertoRico) applyStatusFilter(ctx context.Context, session browser.Session) {
	dropdown, ok := locateFirst(session,
		"select[name*=status]",
		"select[id*=status]",
		"select[name*=estado]",
	)
	if !ok {
		dropdown, ok = selectWithOption(session, "active")
	}
	if !ok {
		p.log.Warn("status dropdown not found, scraping default view")

		return
	}

	if err := session.Fill(dropdown, "Active"); err != nil {
		p.log.Warn("failed to set status filter", "error", err)

		return
	}

	submit, ok := locateFirst(session, "input[type=submit]", "button[type=submit]")
	if !ok {
		p.log.Warn("status filter has no submit control")

		return
	}

	if err := session.Click(ctx, submit); err != nil {
		p.log.Warn("failed to apply status filter", "error", err)
	}
}

// ListingSelector is deliberately loose: the portal's listing shape is not
// known in advance, so readiness is just a parsed document and ExtractPage
// decides usability.
func (p *PuertoRico) ListingSelector() string { return "body" }

// ExtractPage locates rows through the listing cascade and extracts them.
// Zero usable rows is an error, not an empty result.
func (p *PuertoRico) ExtractPage(ctx context.Context, session browser.Session) ([]*models.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, selector := p.locateRows(session)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no listing cascade matched", ErrNoUsableRows)
	}

	p.log.Debug("listing rows located", "selector", selector, "rows", len(rows))

	out := p.pipeline.ExtractRows(rows, puertoRicoFieldSpecs())
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %d rows matched %q but none were extractable", ErrNoUsableRows, len(rows), selector)
	}

	fillMissingKeys(out, "PR", p.now())
	absolutizeDetailLinks(session, out)

	return out, nil
}

// locateRows walks the cascade and returns the first non-empty row set with
// the selector that produced it.
func (p *PuertoRico) locateRows(session browser.Session) ([]browser.Element, string) {
	for _, entry := range puertoRicoCascade {
		rows := session.LocateAll(entry.selector)
		if entry.tabular {
			rows = dataRows(rows)
		}

		if len(rows) > 0 {
			return rows, entry.selector
		}
	}

	return nil, ""
}

// puertoRicoFieldSpecs covers both the tabular and the block shapes of the
// listing. A row with any text at all yields at least a title.
func puertoRicoFieldSpecs() []extract.FieldSpec {
	return []extract.FieldSpec{
		{
			Name: models.FieldNumber,
			Strategies: []extract.Strategy{
				extract.CellText(0),
				extract.Selector(".solicitation-number, [class*=number]", models.ConfidenceHeuristic),
			},
		},
		{
			Name:     models.FieldTitle,
			Required: true,
			Strategies: []extract.Strategy{
				extract.CellText(1),
				extract.Selector(".title, h3, h4, strong", models.ConfidenceHeuristic),
				extract.RowText(120),
			},
		},
		{
			Name: models.FieldCloseDate,
			Strategies: []extract.Strategy{
				extract.CellText(2),
				extract.Selector(".due-date, .deadline, [class*=date]", models.ConfidenceHeuristic),
			},
		},
		{
			Name:       models.FieldDetailURL,
			Strategies: []extract.Strategy{extract.FirstAnchor()},
		},
	}
}
