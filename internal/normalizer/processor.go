package normalizer

import (
	"fmt"
	"strings"
	"time"

	"rfpsonar/internal/models"
	"rfpsonar/pkg/utils"
)

// fieldLabels maps extraction field names to the labels used in the
// description blob. Unknown field names fall through as-is.
var fieldLabels = map[string]string{
	models.FieldNumber:      "Solicitation Number",
	models.FieldTitle:       "Title",
	models.FieldDescription: "Description",
	models.FieldType:        "Type",
	models.FieldCategory:    "Category",
	models.FieldDepartment:  "Department",
	models.FieldBuyerName:   "Buyer Name",
	models.FieldBuyerEmail:  "Buyer Email",
	models.FieldBuyerPhone:  "Buyer Phone",
	models.FieldCloseDate:   "Close Date",
	models.FieldDetailURL:   "Detail URL",
	models.FieldStatus:      "Status",
	models.FieldAlternateID: "Alternate ID",
}

// Canonicalizer turns raw extracted rows into canonical opportunity records.
// Every fallback here is total: a row that reaches Build with a solicitation
// number always yields a record, never an error about unmappable content.
type Canonicalizer struct {
	mapper    *FieldMapper
	dates     *DateNormalizer
	validator *Validator
	strings   *utils.StringHelper
	http      *utils.HTTPHelper
}

// NewCanonicalizer creates a new canonicalizer instance.
func NewCanonicalizer() *Canonicalizer {
	return &Canonicalizer{
		mapper:    NewFieldMapper(),
		dates:     NewDateNormalizer(),
		validator: NewValidator(),
		strings:   utils.NewStringHelper(),
		http:      utils.NewHTTPHelper(),
	}
}

// Build maps a raw row onto a canonical opportunity. listingURL is the page
// the row was extracted from and serves as the portal URL of last resort;
// now anchors the close-date fallback.
func (c *Canonicalizer) Build(raw *models.RawRow, jurisdictionID, listingURL string, now time.Time) (*models.CanonicalOpportunity, error) {
	// 1. Natural key. Adapters synthesize one when the portal omits it, so
	// an empty number here means the row is unusable.
	number := c.strings.NormalizeWhitespace(raw.Value(models.FieldNumber))
	if number == "" {
		return nil, ErrMissingNumber
	}

	// 2. Title cascade: portal title, first line of the description, then a
	// placeholder derived from the number.
	title := c.strings.NormalizeWhitespace(raw.Value(models.FieldTitle))
	if title == "" {
		title = c.strings.NormalizeWhitespace(c.strings.FirstLine(raw.Value(models.FieldDescription)))
	}
	if title == "" {
		title = "Solicitation " + number
	}

	// 3. Type and category: map the dedicated field first, then fall back to
	// keyword matches in the title and description.
	rawDescription := raw.Value(models.FieldDescription)

	oppType := c.mapper.MapType(raw.Value(models.FieldType))
	if oppType == models.TypeOther {
		oppType = c.mapper.MapType(title)
	}
	if oppType == models.TypeOther {
		oppType = c.mapper.MapType(rawDescription)
	}

	category := c.mapper.MapCategory(raw.Value(models.FieldCategory))
	if category == models.CategoryOther {
		category = c.mapper.MapCategory(title)
	}
	if category == models.CategoryOther {
		category = c.mapper.MapCategory(rawDescription)
	}

	// 4. Close date: parse the portal text, or push the deadline a fixed
	// window into the future so the record still syncs.
	closeDate, ok := c.dates.Parse(raw.Value(models.FieldCloseDate))
	if !ok {
		closeDate = c.dates.FallbackCloseDate(now)
	}

	// 5. Portal URL: detail link, detail text, then the listing page itself.
	portalURL := c.resolvePortalURL(raw, listingURL)

	opp := &models.CanonicalOpportunity{
		SolicitationNumber: number,
		Title:              title,
		Type:               oppType,
		Category:           category,
		Department:         c.strings.NormalizeWhitespace(raw.Value(models.FieldDepartment)),
		BuyerName:          c.strings.NormalizeWhitespace(raw.Value(models.FieldBuyerName)),
		BuyerEmail:         c.strings.NormalizeWhitespace(raw.Value(models.FieldBuyerEmail)),
		BuyerPhone:         c.strings.NormalizeWhitespace(raw.Value(models.FieldBuyerPhone)),
		CloseDate:          closeDate,
		PortalURL:          portalURL,
		Jurisdiction:       jurisdictionID,
		Description:        c.buildDescription(raw),
	}

	// 6. Final gate before the record leaves the normalizer.
	if err := c.validator.Validate(opp); err != nil {
		return nil, fmt.Errorf("canonical record invalid: %w", err)
	}

	return opp, nil
}

// resolvePortalURL picks the first usable URL for the record.
func (c *Canonicalizer) resolvePortalURL(raw *models.RawRow, listingURL string) string {
	if link := raw.Link(models.FieldDetailURL); c.http.IsValidURL(link) {
		return link
	}

	if value := strings.TrimSpace(raw.Value(models.FieldDetailURL)); c.http.IsValidURL(value) {
		return value
	}

	return listingURL
}

// buildDescription joins every extracted value into a labeled audit blob,
// preserving the order fields were extracted in.
func (c *Canonicalizer) buildDescription(raw *models.RawRow) string {
	var b strings.Builder

	for _, name := range raw.Names() {
		value := c.strings.NormalizeWhitespace(raw.Value(name))
		if value == "" {
			continue
		}

		label, ok := fieldLabels[name]
		if !ok {
			label = name
		}

		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(value)
	}

	return b.String()
}
