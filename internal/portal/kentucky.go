package portal

import (
	"context"
	"fmt"

	"rfpsonar/internal/browser"
	"rfpsonar/internal/extract"
	"rfpsonar/internal/logger"
	"rfpsonar/internal/models"
)

// Kentucky scrapes the eMars vendor portal. The portal allows guest access;
// the landing page links to a single published-solicitations table. The
// script-rendered variant of the portal lays each solicitation out as
// label/value cell pairs instead of fixed columns, so field specs try label
// proximity first and fall back to the tabular column indexes. A label
// never collides with tabular data, but a column index applied to the
// label/value shape would capture label text.
type Kentucky struct {
	GuestAccess
	SinglePage

	pipeline *extract.Pipeline
	log      *logger.Logger
}

var _ Adapter = (*Kentucky)(nil)

// NewKentucky creates the Kentucky adapter.
func NewKentucky(pipeline *extract.Pipeline, log *logger.Logger) *Kentucky {
	return &Kentucky{
		pipeline: pipeline,
		log:      log.With("adapter", JurisdictionKentucky),
	}
}

// ID returns the jurisdiction identifier.
func (k *Kentucky) ID() string { return JurisdictionKentucky }

// NavigateToListing opens the published solicitations table and applies the
// closing-date sort.
func (k *Kentucky) NavigateToListing(ctx context.Context, session browser.Session) error {
	link, ok := findByText(session, "a", "Published Solicitations")
	if !ok {
		return fmt.Errorf("%w: published solicitations link", browser.ErrNoSuchElement)
	}

	if err := session.Click(ctx, link); err != nil {
		return fmt.Errorf("failed to open published solicitations: %w", err)
	}

	// Sorting soonest-closing-first is a convenience, not a requirement.
	k.sortByClosingDate(ctx, session)

	return nil
}

// sortByClosingDate clicks the closing-date column header, best-effort.
func (k *Kentucky) sortByClosingDate(ctx context.Context, session browser.Session) {
	header, ok := findByText(session, "th", "Closing Date and Time/Status")
	if !ok {
		k.log.Warn("closing date header not found, keeping portal order")

		return
	}

	if err := session.Click(ctx, header); err != nil {
		k.log.Warn("failed to sort by closing date", "error", err)
	}
}

// ListingSelector marks readiness by the first data cell of the table.
func (k *Kentucky) ListingSelector() string { return "table tr td" }

// ExtractPage reads all solicitation rows off the table.
func (k *Kentucky) ExtractPage(ctx context.Context, session browser.Session) ([]*models.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := dataRows(session.LocateAll("table tr"))

	out := k.pipeline.ExtractRows(rows, kentuckyFieldSpecs())
	absolutizeDetailLinks(session, out)

	return out, nil
}

// kentuckyFieldSpecs maps the solicitation fields: label pairs first, then
// the tabular column indexes.
func kentuckyFieldSpecs() []extract.FieldSpec {
	return []extract.FieldSpec{
		{
			Name:     models.FieldNumber,
			Required: true,
			Strategies: []extract.Strategy{
				extract.LabelSibling("Solicitation Number"),
				extract.CellText(0),
			},
		},
		{
			Name: models.FieldDescription,
			Strategies: []extract.Strategy{
				extract.LabelSibling("Description"),
				extract.CellText(1),
			},
		},
		{
			Name: models.FieldDepartment,
			Strategies: []extract.Strategy{
				extract.LabelSibling("Document Department"),
				extract.CellText(2),
			},
		},
		{
			Name: models.FieldCloseDate,
			Strategies: []extract.Strategy{
				extract.LabelSibling("Closing Date"),
				extract.CellText(3),
			},
		},
		{
			Name:       models.FieldBuyerName,
			Strategies: []extract.Strategy{extract.LabelSibling("Buyer Name")},
		},
		{
			Name:       models.FieldBuyerEmail,
			Strategies: []extract.Strategy{extract.LabelSibling("Buyer Email")},
		},
		{
			Name:       models.FieldBuyerPhone,
			Strategies: []extract.Strategy{extract.LabelSibling("Buyer Phone")},
		},
		{
			Name:       models.FieldType,
			Strategies: []extract.Strategy{extract.LabelSibling("Type")},
		},
		{
			Name:       models.FieldCategory,
			Strategies: []extract.Strategy{extract.LabelSibling("Category")},
		},
		{
			Name:       models.FieldDetailURL,
			Strategies: []extract.Strategy{extract.FirstAnchor()},
		},
	}
}
