// Package portal implements the per-jurisdiction adapters and the driver
// that walks each one through a scrape run. Adapters carry portal knowledge
// only: how to sign in, how to reach the listing, how to read rows off a
// page. The driver owns the session lifecycle, the entry fallback, the
// readiness waits, and the page loop.
package portal

import (
	"context"
	"errors"

	"rfpsonar/internal/browser"
	"rfpsonar/internal/models"
)

// Adapter run errors. Every error a run ends with is fatal for that
// jurisdiction; partial results are discarded.
var (
	ErrMissingCredentials   = errors.New("portal credentials not configured")
	ErrAuthenticationFailed = errors.New("portal authentication failed")
	ErrListingNotReady      = errors.New("listing container never became ready")
	ErrAllEntryURLsFailed   = errors.New("all portal entry urls failed")
	ErrNoUsableRows         = errors.New("no usable listing rows found")
	ErrUnknownJurisdiction  = errors.New("unknown jurisdiction")
)

// State identifies where a run is in its lifecycle. Transitions are linear:
// Init -> Authenticated (login portals only) -> Listing, then ExtractingPage
// repeated once per listing page, ending in Done. Any failure moves the run
// to Failed; Closed is reached on every path once the session is released.
type State string

const (
	StateInit           State = "init"
	StateAuthenticated  State = "authenticated"
	StateListing        State = "listing"
	StateExtractingPage State = "extracting_page"
	StateDone           State = "done"
	StateFailed         State = "failed"
	StateClosed         State = "closed"
)

// Adapter encodes one jurisdiction's portal knowledge. Adapters hold no
// per-run state; the session carries all page state, so a single adapter
// value serves concurrent runs as long as each run has its own session.
type Adapter interface {
	// ID returns the jurisdiction identifier the adapter serves.
	ID() string

	// RequiresLogin reports whether the portal gates its listing behind
	// credentials.
	RequiresLogin() bool

	// Authenticate signs the session in. Called only when RequiresLogin
	// reports true, with credentials already resolved. An error is fatal
	// and is never retried.
	Authenticate(ctx context.Context, session browser.Session, username, password string) error

	// NavigateToListing moves the session from the entry page to the
	// listing. Optional refinements (sorts, status filters, page size)
	// are applied best-effort inside: their failure must not surface.
	NavigateToListing(ctx context.Context, session browser.Session) error

	// ListingSelector returns the CSS selector whose presence marks the
	// listing page as ready.
	ListingSelector() string

	// ExtractPage reads all usable rows off the current listing page.
	ExtractPage(ctx context.Context, session browser.Session) ([]*models.RawRow, error)

	// NextPage advances the session to the next listing page, reporting
	// false when the current page was the last.
	NextPage(ctx context.Context, session browser.Session) (bool, error)
}

// GuestAccess is embedded by adapters for portals that allow anonymous
// browsing.
type GuestAccess struct{}

// RequiresLogin reports that no credentials are needed.
func (GuestAccess) RequiresLogin() bool { return false }

// Authenticate is a no-op for guest portals.
func (GuestAccess) Authenticate(context.Context, browser.Session, string, string) error {
	return nil
}

// SinglePage is embedded by adapters whose portals present the whole
// listing on one page.
type SinglePage struct{}

// NextPage reports that there is never a further page.
func (SinglePage) NextPage(context.Context, browser.Session) (bool, error) {
	return false, nil
}
