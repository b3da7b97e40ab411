package portal

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"rfpsonar/internal/browser"
	"rfpsonar/internal/extract"
	"rfpsonar/internal/logger"
	"rfpsonar/internal/models"
)

var (
	// virginiaNumberPattern matches solicitation numbers like "IFB 107443-1"
	// or "RFP-2025-004" anywhere in a card's text.
	virginiaNumberPattern = regexp.MustCompile(`(IFB|RFP|RFQ|ITB|RFS|RFPQ)[ -]*[A-Z0-9][\d-]*`)

	// virginiaTypeKeyword gates cards on a bare solicitation-type keyword.
	// Looser than virginiaNumberPattern: a card can name its type without a
	// number and still be an opportunity.
	virginiaTypeKeyword = regexp.MustCompile(`\b(IFB|RFP|RFQ|ITB|RFS|RFPQ)\b`)

	// virginiaStatusPattern captures the card's status word.
	virginiaStatusPattern = regexp.MustCompile(`(?i)Status:\s*(\w+)`)

	// virginiaDatePattern matches the first slash-formatted date.
	virginiaDatePattern = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}`)
)

// virginiaTitleMinRunes is the shortest text line accepted as a title.
const virginiaTitleMinRunes = 10

// Virginia scrapes the eVA vendor portal. The listing is not a table but a
// wall of cards, each mixing the title, a "Status:" line, the solicitation
// number, and a closing date into free-form text. Cards without a status
// marker are page chrome; cards not marked Open are history. Rows missing a
// recognizable number get a synthesized key.
type Virginia struct {
	GuestAccess
	SinglePage

	pipeline *extract.Pipeline
	log      *logger.Logger
	now      func() time.Time
}

var _ Adapter = (*Virginia)(nil)

// NewVirginia creates the Virginia adapter.
func NewVirginia(pipeline *extract.Pipeline, log *logger.Logger) *Virginia {
	return &Virginia{
		pipeline: pipeline,
		log:      log.With("adapter", JurisdictionVirginia),
		now:      time.Now,
	}
}

// ID returns the jurisdiction identifier.
func (v *Virginia) ID() string { return JurisdictionVirginia }

// NavigateToListing is a no-op: the entry URL is the listing.
func (v *Virginia) NavigateToListing(context.Context, browser.Session) error {
	return nil
}

// ListingSelector marks readiness by the first card.
func (v *Virginia) ListingSelector() string { return ".card" }

// ExtractPage reads all open opportunity cards.
func (v *Virginia) ExtractPage(ctx context.Context, session browser.Session) ([]*models.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cards := session.LocateAll(".card")
	specs := virginiaFieldSpecs()
	out := make([]*models.RawRow, 0, len(cards))

	skipped := 0

	for _, card := range cards {
		text := card.Text()

		// Opportunity cards carry a status marker and a solicitation-type
		// keyword; everything else is page chrome.
		match := virginiaStatusPattern.FindStringSubmatch(text)
		if match == nil || !virginiaTypeKeyword.MatchString(text) {
			continue
		}

		if !strings.EqualFold(match[1], "open") {
			skipped++

			continue
		}

		raw, ok := v.pipeline.ExtractRow(card, specs)
		if !ok {
			continue
		}

		out = append(out, raw)
	}

	v.log.Debug("cards filtered", "total", len(cards), "open", len(out), "not_open", skipped)

	fillMissingKeys(out, "VA", v.now())
	absolutizeDetailLinks(session, out)

	return out, nil
}

// virginiaFieldSpecs pulls what structure the cards have: headings for the
// title, regexes for the number and date, the first anchor for the link.
func virginiaFieldSpecs() []extract.FieldSpec {
	return []extract.FieldSpec{
		{
			Name: models.FieldNumber,
			Strategies: []extract.Strategy{
				extract.RegexText(virginiaNumberPattern, 0),
			},
		},
		{
			Name: models.FieldTitle,
			Strategies: []extract.Strategy{
				extract.Selector("h1, h2, h3, h4, h5, h6", models.ConfidenceHeuristic),
				significantLine{minRunes: virginiaTitleMinRunes},
			},
		},
		{
			Name: models.FieldCloseDate,
			Strategies: []extract.Strategy{
				extract.RegexText(virginiaDatePattern, 0),
			},
		},
		{
			Name:       models.FieldDetailURL,
			Strategies: []extract.Strategy{extract.FirstAnchor()},
		},
	}
}

// significantLine yields the card's first text line long enough to stand as
// a title, skipping the status line.
type significantLine struct {
	minRunes int
}

var _ extract.Strategy = significantLine{}

func (s significantLine) Apply(row browser.Element) (extract.Result, bool) {
	for _, line := range strings.Split(row.Text(), "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) < s.minRunes {
			continue
		}

		if virginiaStatusPattern.MatchString(line) {
			continue
		}

		return extract.Result{Value: line}, true
	}

	return extract.Result{}, false
}

func (s significantLine) Confidence() models.Confidence { return models.ConfidenceHeuristic }

func (s significantLine) Name() string { return "significant-line" }
