package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rfpsonar/internal/browser"
	"rfpsonar/internal/config"
	"rfpsonar/internal/models"
)

const paSearchPage = `<html><body>
<form action="/search" method="get">
  <select name="ctl00$ddlRecordsPerPage">
    <option value="20" selected>20</option>
    <option value="ALL">ALL</option>
  </select>
  <input type="submit" name="btnSearch" value="Search">
</form>
<a href="/export.csv">Export Search Results</a>
</body></html>`

// paExportCSV carries the BOM the portal serves, a quoted cell with an
// embedded comma, and an orphan row without a bid number.
const paExportCSV = "\uFEFFBid No,Bid Type,Title,Description,Agency,County,Bid Start Date,Bid End Date,Bid Open Date,Status,Buyer Name,Updated Date\n" +
	"6100063217,IFB,Bridge Deck Repairs SR-0088,\"Deck repairs, joint replacement\",Department of Transportation,Allegheny,09/01/2025,10/06/2025,10/07/2025,Open,J. Kovac,08/20/2025\n" +
	"CN00048912,RFP,Managed Print Services,Statewide print fleet refresh,Office of Administration,Dauphin,09/05/2025,11/14/2025,11/15/2025,Open,L. Brandt,08/21/2025\n" +
	",IFB,Row without a bid number,orphan,Agency X,,,,,,,\n"

func newEMarketplaceServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()

	queries := new([]string)

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		*queries = append(*queries, r.URL.RawQuery)
		fmt.Fprint(w, paSearchPage)
	})
	mux.HandleFunc("/export.csv", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, paExportCSV)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, queries
}

func TestPennsylvania_CSVExport(t *testing.T) {
	srv, queries := newEMarketplaceServer(t)

	jur := &config.JurisdictionConfig{
		ID:        JurisdictionPennsylvania,
		Name:      "Pennsylvania",
		URL:       srv.URL + "/search",
		AccountID: "001TESTPA",
		Enabled:   true,
	}

	adapter := NewPennsylvania(testLogger())

	rows, err := fixtureDriver().Run(context.Background(), adapter, jur)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	first := rows[0]
	want := map[string]string{
		models.FieldNumber:      "6100063217",
		models.FieldType:        "IFB",
		models.FieldTitle:       "Bridge Deck Repairs SR-0088",
		models.FieldDescription: "Deck repairs, joint replacement",
		models.FieldDepartment:  "Department of Transportation",
		"County":                "Allegheny",
		models.FieldCloseDate:   "10/06/2025",
		models.FieldStatus:      "Open",
		models.FieldBuyerName:   "J. Kovac",
		models.FieldDetailURL:   "https://www.emarketplace.state.pa.us/Solicitations.aspx?SID=6100063217",
	}
	for name, value := range want {
		if got := fieldValue(t, first, name); got != value {
			t.Errorf("%s = %q, want %q", name, got, value)
		}
	}

	// The export is authoritative, so cells land with Exact confidence
	// despite the BOM-carrying header.
	if field, _ := first.Get(models.FieldNumber); field.Confidence != models.ConfidenceExact {
		t.Errorf("number confidence = %q, want exact", field.Confidence)
	}

	if got := fieldValue(t, rows[1], models.FieldNumber); got != "CN00048912" {
		t.Errorf("second number = %q, want CN00048912", got)
	}

	// The records-per-page widening should have been replayed as a form
	// submission before the export download.
	widened := false
	for _, q := range *queries {
		if strings.Contains(q, "ddlRecordsPerPage=ALL") {
			widened = true
		}
	}
	if !widened {
		t.Errorf("no widened search request seen, queries = %v", *queries)
	}
}

func TestPennsylvania_MissingExportLink(t *testing.T) {
	srv := servePages(t, map[string]string{
		"/search": `<html><body><form action="/search"><input type="submit" value="Search"></form></body></html>`,
	})

	session := fixtureSession(t)
	if err := session.Navigate(context.Background(), srv.URL+"/search"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}

	adapter := NewPennsylvania(testLogger())

	_, err := adapter.ExtractPage(context.Background(), session)
	if !errors.Is(err, browser.ErrNoSuchElement) {
		t.Fatalf("ExtractPage() error = %v, want ErrNoSuchElement", err)
	}
}

func TestPennsylvania_ParseCSVMissingNumberColumn(t *testing.T) {
	adapter := NewPennsylvania(testLogger())

	_, err := adapter.parseCSV([]byte("Title,Agency\nBridge work,Transportation\n"))
	if err == nil || !strings.Contains(err.Error(), "Bid No") {
		t.Fatalf("parseCSV() error = %v, want missing column error", err)
	}
}

func TestPennsylvania_ParseCSVEmptyBody(t *testing.T) {
	adapter := NewPennsylvania(testLogger())

	if _, err := adapter.parseCSV(nil); err == nil {
		t.Fatal("parseCSV() on empty body should fail")
	}
}

func TestPennsylvania_ParseCSVUnreadable(t *testing.T) {
	adapter := NewPennsylvania(testLogger())

	if _, err := adapter.parseCSV([]byte("\"unterminated")); err == nil {
		t.Fatal("parseCSV() on malformed body should fail")
	}
}
