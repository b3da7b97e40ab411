package portal

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"rfpsonar/internal/browser"
	"rfpsonar/internal/logger"
	"rfpsonar/internal/models"
)

// eMarketplace CSV export columns.
const (
	paColumnNumber      = "Bid No"
	paColumnType        = "Bid Type"
	paColumnTitle       = "Title"
	paColumnDescription = "Description"
	paColumnAgency      = "Agency"
	paColumnCounty      = "County"
	paColumnEndDate     = "Bid End Date"
	paColumnStatus      = "Status"
	paColumnBuyer       = "Buyer Name"
)

const paDetailBase = "https://www.emarketplace.state.pa.us/Solicitations.aspx?SID="

// Pennsylvania scrapes the eMarketplace search page. Instead of walking the
// results grid it downloads the portal's own CSV export, which carries every
// record in one shot; cells land with Exact confidence since no locator
// heuristics are involved. The detail URL is reconstructed from the bid
// number, the way the portal itself links solicitations.
type Pennsylvania struct {
	GuestAccess
	SinglePage

	log *logger.Logger
}

var _ Adapter = (*Pennsylvania)(nil)

// NewPennsylvania creates the Pennsylvania adapter.
func NewPennsylvania(log *logger.Logger) *Pennsylvania {
	return &Pennsylvania{log: log.With("adapter", JurisdictionPennsylvania)}
}

// ID returns the jurisdiction identifier.
func (p *Pennsylvania) ID() string { return JurisdictionPennsylvania }

// NavigateToListing widens the search page to every record, best-effort.
// The export carries all records regardless, so a failed widening only
// costs server round trips.
func (p *Pennsylvania) NavigateToListing(ctx context.Context, session browser.Session) error {
	dropdown, ok := session.Locate("select[name*=RecordsPerPage]")
	if !ok {
		return nil
	}

	if err := session.Fill(dropdown, "ALL"); err != nil {
		p.log.Warn("failed to select all records per page", "error", err)

		return nil
	}

	submit, ok := locateFirst(session, "input[type=submit]", "button[type=submit]")
	if !ok {
		return nil
	}

	if err := session.Click(ctx, submit); err != nil {
		p.log.Warn("failed to apply records-per-page widening", "error", err)
	}

	return nil
}

// ListingSelector marks readiness by the search form.
func (p *Pennsylvania) ListingSelector() string { return "form" }

// ExtractPage downloads and parses the CSV export.
func (p *Pennsylvania) ExtractPage(ctx context.Context, session browser.Session) ([]*models.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	exportURL, err := p.findExport(session)
	if err != nil {
		return nil, err
	}

	body, err := session.Fetch(ctx, exportURL)
	if err != nil {
		return nil, fmt.Errorf("csv export download failed: %w", err)
	}

	rows, err := p.parseCSV(body)
	if err != nil {
		return nil, err
	}

	p.log.Debug("csv export parsed", "rows", len(rows))

	return rows, nil
}

// findExport locates the export affordance on the search page.
func (p *Pennsylvania) findExport(session browser.Session) (string, error) {
	link, ok := findByText(session, "a", "export search results")
	if !ok {
		return "", fmt.Errorf("%w: export link", browser.ErrNoSuchElement)
	}

	href, ok := link.Attr("href")
	if !ok || href == "" {
		return "", fmt.Errorf("%w: export link has no href", browser.ErrNoSuchElement)
	}

	return href, nil
}

// parseCSV turns the export body into raw rows. Rows without a bid number
// are dropped: nothing downstream can key them.
func (p *Pennsylvania) parseCSV(body []byte) ([]*models.RawRow, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv export unreadable: %w", err)
	}

	if len(records) == 0 {
		return nil, errors.New("csv export is empty")
	}

	header := records[0]
	// The portal serves the export with a UTF-8 byte order mark.
	header[0] = strings.TrimPrefix(header[0], "\uFEFF")

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	if _, ok := index[paColumnNumber]; !ok {
		return nil, fmt.Errorf("csv export missing %q column", paColumnNumber)
	}

	cell := func(record []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(record) {
			return ""
		}

		return strings.TrimSpace(record[i])
	}

	rows := make([]*models.RawRow, 0, len(records)-1)

	for _, record := range records[1:] {
		number := cell(record, paColumnNumber)
		if number == "" {
			continue
		}

		raw := models.NewRawRow()
		set := func(name, value string) {
			if value == "" {
				return
			}

			raw.Set(name, models.Field{Value: value, Confidence: models.ConfidenceExact})
		}

		set(models.FieldNumber, number)
		set(models.FieldType, cell(record, paColumnType))
		set(models.FieldTitle, cell(record, paColumnTitle))
		set(models.FieldDescription, cell(record, paColumnDescription))
		set(models.FieldDepartment, cell(record, paColumnAgency))
		// Portal-specific extra; flows into the audit blob only.
		set(paColumnCounty, cell(record, paColumnCounty))
		set(models.FieldCloseDate, cell(record, paColumnEndDate))
		set(models.FieldStatus, cell(record, paColumnStatus))
		set(models.FieldBuyerName, cell(record, paColumnBuyer))
		set(models.FieldDetailURL, paDetailBase+url.QueryEscape(number))

		rows = append(rows, raw)
	}

	return rows, nil
}
