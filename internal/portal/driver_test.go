package portal

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"rfpsonar/internal/browser"
	"rfpsonar/internal/config"
	"rfpsonar/internal/logger"
	"rfpsonar/internal/models"
)

func testLogger() *logger.Logger {
	return logger.NewLogger("error")
}

// fakeSession scripts session behavior for driver tests. Element lookups
// always miss; adapters under test here are fakes that never look anything
// up.
type fakeSession struct {
	navigateErrs map[string]error
	visited      []string
	waitFailures int
	waitCalls    int
	page         int
	closed       bool
}

var _ browser.Session = (*fakeSession)(nil)

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	s.visited = append(s.visited, url)
	if err := s.navigateErrs[url]; err != nil {
		return err
	}
	s.page = 1

	return nil
}

func (s *fakeSession) WaitReady(_ context.Context, selector string, _ time.Duration) error {
	s.waitCalls++
	if s.waitCalls <= s.waitFailures {
		return fmt.Errorf("%w: %s", browser.ErrWaitTimeout, selector)
	}

	return nil
}

func (s *fakeSession) Locate(string) (browser.Element, bool) { return nil, false }

func (s *fakeSession) LocateAll(string) []browser.Element { return nil }

func (s *fakeSession) Click(context.Context, browser.Element) error {
	return browser.ErrNotClickable
}

func (s *fakeSession) Fill(browser.Element, string) error { return nil }

func (s *fakeSession) Fetch(context.Context, string) ([]byte, error) {
	return nil, errors.New("fetch not scripted")
}

func (s *fakeSession) CurrentURL() string {
	if len(s.visited) == 0 {
		return ""
	}

	return s.visited[len(s.visited)-1]
}

func (s *fakeSession) CurrentPage() int { return s.page }

func (s *fakeSession) Close() error {
	s.closed = true

	return nil
}

// fakeAdapter scripts adapter behavior through function fields.
type fakeAdapter struct {
	login          bool
	AuthenticateFn func(ctx context.Context, session browser.Session, username, password string) error
	NavigateFn     func(ctx context.Context, session browser.Session) error
	ExtractPageFn  func(ctx context.Context, session browser.Session) ([]*models.RawRow, error)
	NextPageFn     func(ctx context.Context, session browser.Session) (bool, error)
	authCalls      int
	extractCalls   int
}

var _ Adapter = (*fakeAdapter)(nil)

func (f *fakeAdapter) ID() string { return "testland" }

func (f *fakeAdapter) RequiresLogin() bool { return f.login }

func (f *fakeAdapter) Authenticate(ctx context.Context, session browser.Session, username, password string) error {
	f.authCalls++
	if f.AuthenticateFn == nil {
		return nil
	}

	return f.AuthenticateFn(ctx, session, username, password)
}

func (f *fakeAdapter) NavigateToListing(ctx context.Context, session browser.Session) error {
	if f.NavigateFn == nil {
		return nil
	}

	return f.NavigateFn(ctx, session)
}

func (f *fakeAdapter) ListingSelector() string { return "#listing" }

func (f *fakeAdapter) ExtractPage(ctx context.Context, session browser.Session) ([]*models.RawRow, error) {
	f.extractCalls++
	if f.ExtractPageFn == nil {
		return nil, nil
	}

	return f.ExtractPageFn(ctx, session)
}

func (f *fakeAdapter) NextPage(ctx context.Context, session browser.Session) (bool, error) {
	if f.NextPageFn == nil {
		return false, nil
	}

	return f.NextPageFn(ctx, session)
}

func driverFor(session browser.Session) *Driver {
	factory := func(context.Context) (browser.Session, error) {
		return session, nil
	}

	return NewDriver(factory, time.Second, testLogger())
}

func testJurisdiction() *config.JurisdictionConfig {
	return &config.JurisdictionConfig{
		ID:        "testland",
		Name:      "Testland",
		URL:       "https://portal.test/listing",
		AccountID: "001TESTACCT",
		Enabled:   true,
	}
}

func numberedRow(number string) *models.RawRow {
	raw := models.NewRawRow()
	raw.Set(models.FieldNumber, models.Field{Value: number, Confidence: models.ConfidenceExact})

	return raw
}

func TestDriver_Run_PageLoop(t *testing.T) {
	sess := &fakeSession{}

	pages := [][]*models.RawRow{
		{numberedRow("T-1"), numberedRow("T-2")},
		{numberedRow("T-3")},
	}

	adapter := &fakeAdapter{
		ExtractPageFn: func(_ context.Context, session browser.Session) ([]*models.RawRow, error) {
			return pages[session.CurrentPage()-1], nil
		},
		NextPageFn: func(context.Context, browser.Session) (bool, error) {
			if sess.page >= len(pages) {
				return false, nil
			}
			sess.page++

			return true, nil
		},
	}

	rows, err := driverFor(sess).Run(context.Background(), adapter, testJurisdiction())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows across pages, got %d", len(rows))
	}

	want := []string{"T-1", "T-2", "T-3"}
	for i, raw := range rows {
		if got := raw.Value(models.FieldNumber); got != want[i] {
			t.Errorf("Row %d: expected %s, got %s", i, want[i], got)
		}
	}

	// One wait per page: the initial listing plus one after the advance.
	if sess.waitCalls != 2 {
		t.Errorf("Expected 2 listing waits, got %d", sess.waitCalls)
	}

	if !sess.closed {
		t.Error("Expected session closed after successful run")
	}
}

func TestDriver_Run_EntryFallback(t *testing.T) {
	jur := testJurisdiction()
	jur.BackupURLs = []string{"https://mirror.portal.test/listing"}

	sess := &fakeSession{
		navigateErrs: map[string]error{
			jur.URL: errors.New("connection refused"),
		},
	}

	adapter := &fakeAdapter{
		ExtractPageFn: func(context.Context, browser.Session) ([]*models.RawRow, error) {
			return []*models.RawRow{numberedRow("T-1")}, nil
		},
	}

	rows, err := driverFor(sess).Run(context.Background(), adapter, jur)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(rows) != 1 {
		t.Errorf("Expected 1 row via backup url, got %d", len(rows))
	}

	if len(sess.visited) != 2 || sess.visited[1] != jur.BackupURLs[0] {
		t.Errorf("Expected primary then backup url, visited %v", sess.visited)
	}
}

func TestDriver_Run_AllEntryURLsFail(t *testing.T) {
	jur := testJurisdiction()
	jur.BackupURLs = []string{"https://mirror.portal.test/listing"}

	sess := &fakeSession{
		navigateErrs: map[string]error{
			jur.URL:           errors.New("connection refused"),
			jur.BackupURLs[0]: errors.New("dns failure"),
		},
	}

	adapter := &fakeAdapter{}

	_, err := driverFor(sess).Run(context.Background(), adapter, jur)
	if !errors.Is(err, ErrAllEntryURLsFailed) {
		t.Fatalf("Expected ErrAllEntryURLsFailed, got %v", err)
	}

	if adapter.extractCalls != 0 {
		t.Error("Expected no extraction after entry failure")
	}

	if !sess.closed {
		t.Error("Expected session closed after entry failure")
	}
}

func TestDriver_Run_MissingCredentialRefs(t *testing.T) {
	sess := &fakeSession{}
	adapter := &fakeAdapter{login: true}

	// The jurisdiction has no credential refs configured at all.
	_, err := driverFor(sess).Run(context.Background(), adapter, testJurisdiction())
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("Expected ErrMissingCredentials, got %v", err)
	}

	if adapter.authCalls != 0 {
		t.Error("Expected no authentication attempt without credentials")
	}

	if !sess.closed {
		t.Error("Expected session closed")
	}
}

func TestDriver_Run_UnsetCredentialEnv(t *testing.T) {
	t.Setenv("TEST_PORTAL_USER", "")
	t.Setenv("TEST_PORTAL_PASS", "")

	jur := testJurisdiction()
	jur.Credentials = config.CredentialRefs{
		UsernameEnv: "TEST_PORTAL_USER",
		PasswordEnv: "TEST_PORTAL_PASS",
	}

	adapter := &fakeAdapter{login: true}

	_, err := driverFor(&fakeSession{}).Run(context.Background(), adapter, jur)
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("Expected ErrMissingCredentials for unset env, got %v", err)
	}
}

func TestDriver_Run_AuthenticationFailureNotRetried(t *testing.T) {
	t.Setenv("TEST_PORTAL_USER", "vendor1")
	t.Setenv("TEST_PORTAL_PASS", "hunter2")

	jur := testJurisdiction()
	jur.Credentials = config.CredentialRefs{
		UsernameEnv: "TEST_PORTAL_USER",
		PasswordEnv: "TEST_PORTAL_PASS",
	}

	sess := &fakeSession{}
	adapter := &fakeAdapter{
		login: true,
		AuthenticateFn: func(_ context.Context, _ browser.Session, username, password string) error {
			if username != "vendor1" || password != "hunter2" {
				t.Errorf("Unexpected credentials: %s/%s", username, password)
			}

			return errors.New("invalid credentials")
		},
	}

	_, err := driverFor(sess).Run(context.Background(), adapter, jur)
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("Expected ErrAuthenticationFailed, got %v", err)
	}

	if adapter.authCalls != 1 {
		t.Errorf("Expected exactly 1 authentication attempt, got %d", adapter.authCalls)
	}

	if adapter.extractCalls != 0 {
		t.Error("Expected no extraction after failed authentication")
	}

	if !sess.closed {
		t.Error("Expected session closed")
	}
}

func TestDriver_Run_ListingWaitRetriesOnce(t *testing.T) {
	sess := &fakeSession{waitFailures: 1}
	adapter := &fakeAdapter{
		ExtractPageFn: func(context.Context, browser.Session) ([]*models.RawRow, error) {
			return []*models.RawRow{numberedRow("T-1")}, nil
		},
	}

	rows, err := driverFor(sess).Run(context.Background(), adapter, testJurisdiction())
	if err != nil {
		t.Fatalf("Expected single wait failure to be absorbed, got %v", err)
	}

	if len(rows) != 1 {
		t.Errorf("Expected 1 row, got %d", len(rows))
	}

	if sess.waitCalls != 2 {
		t.Errorf("Expected 2 wait attempts, got %d", sess.waitCalls)
	}
}

func TestDriver_Run_ListingNeverReady(t *testing.T) {
	sess := &fakeSession{waitFailures: 2}
	adapter := &fakeAdapter{}

	_, err := driverFor(sess).Run(context.Background(), adapter, testJurisdiction())
	if !errors.Is(err, ErrListingNotReady) {
		t.Fatalf("Expected ErrListingNotReady, got %v", err)
	}

	if adapter.extractCalls != 0 {
		t.Error("Expected no extraction when the listing never readied")
	}

	if !sess.closed {
		t.Error("Expected session closed")
	}
}

func TestDriver_Run_ExtractionFailureIsFatal(t *testing.T) {
	sess := &fakeSession{}

	extractErr := errors.New("markup shifted")
	adapter := &fakeAdapter{
		ExtractPageFn: func(context.Context, browser.Session) ([]*models.RawRow, error) {
			return nil, extractErr
		},
	}

	rows, err := driverFor(sess).Run(context.Background(), adapter, testJurisdiction())
	if !errors.Is(err, extractErr) {
		t.Fatalf("Expected extraction error surfaced, got %v", err)
	}

	if rows != nil {
		t.Error("Expected no rows from a failed run")
	}

	if !sess.closed {
		t.Error("Expected session closed")
	}
}

func TestDriver_Run_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	sess := &fakeSession{}
	adapter := &fakeAdapter{
		ExtractPageFn: func(context.Context, browser.Session) ([]*models.RawRow, error) {
			cancel()

			return []*models.RawRow{numberedRow("T-1")}, nil
		},
		NextPageFn: func(context.Context, browser.Session) (bool, error) {
			return true, nil
		},
	}

	_, err := driverFor(sess).Run(ctx, adapter, testJurisdiction())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	if !sess.closed {
		t.Error("Expected session closed after cancellation")
	}
}

func TestDriver_Run_FactoryFailure(t *testing.T) {
	factoryErr := errors.New("engine unavailable")
	factory := func(context.Context) (browser.Session, error) {
		return nil, factoryErr
	}

	d := NewDriver(factory, time.Second, testLogger())

	_, err := d.Run(context.Background(), &fakeAdapter{}, testJurisdiction())
	if !errors.Is(err, factoryErr) {
		t.Fatalf("Expected factory error surfaced, got %v", err)
	}
}
