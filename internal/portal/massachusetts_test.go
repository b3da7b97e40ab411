package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rfpsonar/internal/config"
	"rfpsonar/internal/models"
)

const commbuysLandingPage = `<html><body>
<h1>CommBuys</h1>
<a href="/signin">Sign In</a>
</body></html>`

const commbuysSignInPage = `<html><body>
<form action="/session" method="post">
  <input type="text" name="userId">
  <input type="password" name="password">
  <input type="submit" name="signin" value="Sign In">
</form>
</body></html>`

const commbuysDashboardPage = `<html><body>
<p>Welcome back</p>
<a href="/wrong">Bids (76502)</a>
<a href="/bids">Bids</a>
</body></html>`

const commbuysBidsSummaryPage = `<html><body>
<h2>Open Bids</h2>
<a href="/bids/open">View More</a>
</body></html>`

const commbuysBidsPageOne = `<html><body>
<table>
<thead>
  <tr><th>Bid #</th><th>Organization</th><th>Alternate Id</th><th>Buyer</th>
      <th>Description</th><th>Purchase Method</th><th>Bid Opening Date</th></tr>
</thead>
<tbody>
  <tr><td colspan="7">Featured: vendor training sessions</td></tr>
  <tr>
    <td><a href="/bid/BD-26-1055">BD-26-1055</a></td>
    <td>Executive Office of Technology Services</td>
    <td>ALT-889</td>
    <td>K. Doyle</td>
    <td>Statewide endpoint management platform</td>
    <td>RFR</td>
    <td>12/30/2025 02:00:00 PM</td>
  </tr>
  <tr>
    <td><a href="/bid/BD-26-1056">BD-26-1056</a></td>
    <td>Department of Conservation</td>
    <td>ALT-890</td>
    <td>S. Varga</td>
    <td>Trailhead facility upgrades western region</td>
    <td>IFB</td>
    <td>01/15/2026 10:00:00 AM</td>
  </tr>
</tbody>
</table>
<a rel="next" href="/bids/open?page=2">Next</a>
</body></html>`

const commbuysBidsPageTwo = `<html><body>
<table>
<tbody>
  <tr>
    <td><a href="/bid/BD-26-2001">BD-26-2001</a></td>
    <td>Office of the Comptroller</td>
    <td>ALT-901</td>
    <td>M. Ferreira</td>
    <td>Payroll audit support services</td>
    <td>RFQ</td>
    <td>02/02/2026 02:00:00 PM</td>
  </tr>
</tbody>
</table>
</body></html>`

// newCommbuysServer serves the sign-in flow plus a two-page bid board.
// Credentials vendor7/opensesame are accepted; anything else gets a 403.
func newCommbuysServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()

	loginAttempts := new(int)

	mux := http.NewServeMux()
	mux.HandleFunc("/portal", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, commbuysLandingPage)
	})
	mux.HandleFunc("/signin", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, commbuysSignInPage)
	})
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)

			return
		}

		*loginAttempts++

		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)

			return
		}

		if r.PostForm.Get("userId") != "vendor7" || r.PostForm.Get("password") != "opensesame" {
			http.Error(w, "rejected", http.StatusForbidden)

			return
		}

		fmt.Fprint(w, commbuysDashboardPage)
	})
	mux.HandleFunc("/bids", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, commbuysBidsSummaryPage)
	})
	mux.HandleFunc("/bids/open", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, commbuysBidsPageTwo)

			return
		}

		fmt.Fprint(w, commbuysBidsPageOne)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, loginAttempts
}

func commbuysJurisdiction(srv *httptest.Server) *config.JurisdictionConfig {
	return &config.JurisdictionConfig{
		ID:        JurisdictionMassachusetts,
		Name:      "Massachusetts",
		URL:       srv.URL + "/portal",
		AccountID: "001TESTMA",
		Credentials: config.CredentialRefs{
			UsernameEnv: "TEST_COMMBUYS_USER",
			PasswordEnv: "TEST_COMMBUYS_PASS",
		},
		Enabled: true,
	}
}

func TestMassachusetts_SignInAndPaginate(t *testing.T) {
	srv, loginAttempts := newCommbuysServer(t)

	t.Setenv("TEST_COMMBUYS_USER", "vendor7")
	t.Setenv("TEST_COMMBUYS_PASS", "opensesame")

	adapter := NewMassachusetts(testPipeline(), testLogger())

	rows, err := fixtureDriver().Run(context.Background(), adapter, commbuysJurisdiction(srv))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if *loginAttempts != 1 {
		t.Errorf("login attempts = %d, want 1", *loginAttempts)
	}

	// Two rows from page one, one from page two; the short promo row is
	// dropped.
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	first := rows[0]
	want := map[string]string{
		models.FieldNumber:      "BD-26-1055",
		models.FieldDepartment:  "Executive Office of Technology Services",
		models.FieldAlternateID: "ALT-889",
		models.FieldBuyerName:   "K. Doyle",
		models.FieldTitle:       "Statewide endpoint management platform",
		models.FieldType:        "RFR",
		models.FieldCloseDate:   "12/30/2025 02:00:00 PM",
	}
	for name, value := range want {
		if got := fieldValue(t, first, name); got != value {
			t.Errorf("%s = %q, want %q", name, got, value)
		}
	}

	wantLink := srv.URL + "/bid/BD-26-1055"
	if got := first.Link(models.FieldDetailURL); got != wantLink {
		t.Errorf("detail link = %q, want %q", got, wantLink)
	}

	if got := fieldValue(t, rows[2], models.FieldNumber); got != "BD-26-2001" {
		t.Errorf("page two number = %q, want BD-26-2001", got)
	}
}

func TestMassachusetts_RejectedCredentials(t *testing.T) {
	srv, loginAttempts := newCommbuysServer(t)

	t.Setenv("TEST_COMMBUYS_USER", "vendor7")
	t.Setenv("TEST_COMMBUYS_PASS", "wrong")

	adapter := NewMassachusetts(testPipeline(), testLogger())

	_, err := fixtureDriver().Run(context.Background(), adapter, commbuysJurisdiction(srv))
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("Run() error = %v, want ErrAuthenticationFailed", err)
	}

	// Credential rejections are not retried.
	if *loginAttempts != 1 {
		t.Errorf("login attempts = %d, want 1", *loginAttempts)
	}
}

func TestMassachusetts_BouncedBackToSignInForm(t *testing.T) {
	// Some portal builds re-render the sign-in form with a 200 instead of
	// rejecting outright.
	srv := servePages(t, map[string]string{
		"/signin":  commbuysSignInPage,
		"/session": commbuysSignInPage,
	})

	session := fixtureSession(t)
	if err := session.Navigate(context.Background(), srv.URL+"/signin"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}

	adapter := NewMassachusetts(testPipeline(), testLogger())

	err := adapter.Authenticate(context.Background(), session, "vendor7", "opensesame")
	if err == nil || !strings.Contains(err.Error(), "sign-in form") {
		t.Fatalf("Authenticate() error = %v, want sign-in form bounce", err)
	}
}
