package portal

import (
	"context"
	"errors"
	"fmt"

	"rfpsonar/internal/browser"
	"rfpsonar/internal/extract"
	"rfpsonar/internal/logger"
	"rfpsonar/internal/models"
)

// massachusettsColumns is how many cells a usable bid row carries. Shorter
// rows are section headers or ads.
const massachusettsColumns = 7

// Massachusetts scrapes the CommBuys bid board. The listing sits behind a
// sign-in, then a fixed-column table: bid number with its detail link,
// organization, alternate id, buyer, description, purchase method, bid
// opening date. The board paginates; every page is followed.
type Massachusetts struct {
	pipeline *extract.Pipeline
	log      *logger.Logger
}

var _ Adapter = (*Massachusetts)(nil)

// NewMassachusetts creates the Massachusetts adapter.
func NewMassachusetts(pipeline *extract.Pipeline, log *logger.Logger) *Massachusetts {
	return &Massachusetts{
		pipeline: pipeline,
		log:      log.With("adapter", JurisdictionMassachusetts),
	}
}

// ID returns the jurisdiction identifier.
func (m *Massachusetts) ID() string { return JurisdictionMassachusetts }

// RequiresLogin reports that the bid board needs credentials.
func (m *Massachusetts) RequiresLogin() bool { return true }

// Authenticate opens the sign-in form, fills the user id and password, and
// submits. A portal that bounces back to the form rejected the credentials.
func (m *Massachusetts) Authenticate(ctx context.Context, session browser.Session, username, password string) error {
	// The landing page hides the form behind a sign-in control.
	if link, ok := findByText(session, "a, button", "sign in"); ok {
		if err := session.Click(ctx, link); err != nil {
			return fmt.Errorf("failed to open sign-in form: %w", err)
		}
	}

	user, ok := locateFirst(session,
		"#userId",
		"input[name=userId]",
		"input[name=userid]",
		"input[name=username]",
		"input[type=text]",
	)
	if !ok {
		return fmt.Errorf("%w: user id input", browser.ErrNoSuchElement)
	}

	pass, ok := locateFirst(session, "input[type=password]", "input[name=password]")
	if !ok {
		return fmt.Errorf("%w: password input", browser.ErrNoSuchElement)
	}

	if err := session.Fill(user, username); err != nil {
		return fmt.Errorf("failed to fill user id: %w", err)
	}

	if err := session.Fill(pass, password); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}

	submit, ok := locateFirst(session, "input[type=submit]", "button[type=submit]", "button")
	if !ok {
		return fmt.Errorf("%w: sign-in submit", browser.ErrNoSuchElement)
	}

	if err := session.Click(ctx, submit); err != nil {
		return fmt.Errorf("sign-in rejected: %w", err)
	}

	if _, still := session.Locate("input[type=password]"); still {
		return errors.New("portal returned to the sign-in form")
	}

	return nil
}

// NavigateToListing opens the bid board and expands the open-bids summary
// into the full list.
func (m *Massachusetts) NavigateToListing(ctx context.Context, session browser.Session) error {
	// Exact match: the board also offers "Bids (76502)" style links.
	bids, ok := findLinkExact(session, "Bids")
	if !ok {
		return fmt.Errorf("%w: bids link", browser.ErrNoSuchElement)
	}

	if err := session.Click(ctx, bids); err != nil {
		return fmt.Errorf("failed to open bids: %w", err)
	}

	more, ok := findByText(session, "a", "view more")
	if !ok {
		return fmt.Errorf("%w: view more link", browser.ErrNoSuchElement)
	}

	if err := session.Click(ctx, more); err != nil {
		return fmt.Errorf("failed to expand open bids: %w", err)
	}

	return nil
}

// ListingSelector marks readiness by the bid table body.
func (m *Massachusetts) ListingSelector() string { return "table tbody tr" }

// ExtractPage reads all bid rows off the current page.
func (m *Massachusetts) ExtractPage(ctx context.Context, session browser.Session) ([]*models.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []browser.Element

	for _, row := range session.LocateAll("table tbody tr") {
		if len(row.Find("td")) < massachusettsColumns {
			continue
		}

		rows = append(rows, row)
	}

	out := m.pipeline.ExtractRows(rows, massachusettsFieldSpecs())
	absolutizeDetailLinks(session, out)

	return out, nil
}

// NextPage follows the pagination affordance while one is present.
func (m *Massachusetts) NextPage(ctx context.Context, session browser.Session) (bool, error) {
	next, ok := locateFirst(session, "a[rel=next]", "a[aria-label=Next]")
	if !ok {
		if next, ok = findLinkExact(session, "Next"); !ok {
			return false, nil
		}
	}

	if err := session.Click(ctx, next); err != nil {
		return false, fmt.Errorf("failed to follow next page: %w", err)
	}

	return true, nil
}

// massachusettsFieldSpecs maps the fixed bid board columns. The bid number
// cell doubles as the detail link source.
func massachusettsFieldSpecs() []extract.FieldSpec {
	return []extract.FieldSpec{
		{
			Name:       models.FieldNumber,
			Required:   true,
			Strategies: []extract.Strategy{extract.CellText(0)},
		},
		{
			Name:       models.FieldDepartment,
			Strategies: []extract.Strategy{extract.CellText(1)},
		},
		{
			Name:       models.FieldAlternateID,
			Strategies: []extract.Strategy{extract.CellText(2)},
		},
		{
			Name:       models.FieldBuyerName,
			Strategies: []extract.Strategy{extract.CellText(3)},
		},
		{
			Name:       models.FieldTitle,
			Strategies: []extract.Strategy{extract.CellText(4)},
		},
		{
			Name:       models.FieldType,
			Strategies: []extract.Strategy{extract.CellText(5)},
		},
		{
			Name:       models.FieldCloseDate,
			Strategies: []extract.Strategy{extract.CellText(6)},
		},
		{
			Name:       models.FieldDetailURL,
			Strategies: []extract.Strategy{extract.CellText(0)},
		},
	}
}
