package portal

import (
	"context"
	"fmt"
	"time"

	"rfpsonar/internal/browser"
	"rfpsonar/internal/config"
	"rfpsonar/internal/logger"
	"rfpsonar/internal/models"
)

// Driver walks an adapter through the run lifecycle. It owns session setup
// and teardown, entry URL fallback, credential resolution, the listing
// readiness wait, and the page loop. One Driver serves all jurisdictions;
// each Run gets a fresh session from the factory.
type Driver struct {
	factory     browser.Factory
	pageTimeout time.Duration
	log         *logger.Logger
}

// NewDriver creates a driver that opens sessions with the given factory.
// pageTimeout bounds each wait for the listing container.
func NewDriver(factory browser.Factory, pageTimeout time.Duration, log *logger.Logger) *Driver {
	return &Driver{
		factory:     factory,
		pageTimeout: pageTimeout,
		log:         log.With("component", "portal"),
	}
}

// Run executes one scrape of the adapter's portal and returns the raw rows
// in listing order. A nil error means the run reached the end of its page
// loop; any error means the run failed and its partial rows were discarded.
// The session is closed on every path.
func (d *Driver) Run(ctx context.Context, adapter Adapter, jur *config.JurisdictionConfig) (rows []*models.RawRow, err error) {
	log := d.log.With("jurisdiction", adapter.ID())
	state := StateInit

	session, err := d.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warn("session close failed", "error", cerr)
		}

		if err != nil {
			d.move(log, &state, StateFailed)
		}
		d.move(log, &state, StateClosed)
	}()

	// 1. Entry: candidate URLs tried in order, first success wins.
	if err = d.enter(ctx, session, jur, log); err != nil {
		return nil, err
	}

	// 2. Sign in when the portal gates its listing. Credential problems are
	// fatal and never retried: a retry would only re-fail or lock the
	// account out.
	if adapter.RequiresLogin() {
		if !jur.RequiresLogin() {
			return nil, fmt.Errorf("%w: no credential refs for %s", ErrMissingCredentials, jur.ID)
		}

		username, password, ok := jur.Credentials.Resolve()
		if !ok {
			return nil, fmt.Errorf("%w: referenced environment variables unset for %s", ErrMissingCredentials, jur.ID)
		}

		if aerr := adapter.Authenticate(ctx, session, username, password); aerr != nil {
			return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, aerr)
		}

		d.move(log, &state, StateAuthenticated)
		log.Info("authenticated")
	}

	// 3. Reach the listing. Refinements inside the adapter are best-effort
	// and never surface here.
	if err = adapter.NavigateToListing(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to reach listing: %w", err)
	}

	d.move(log, &state, StateListing)

	if err = d.awaitListing(ctx, session, adapter.ListingSelector(), log); err != nil {
		return nil, err
	}

	// 4. Page loop: extract, advance, re-await, until the adapter reports
	// the last page.
	for {
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		d.move(log, &state, StateExtractingPage)

		var pageRows []*models.RawRow

		pageRows, err = adapter.ExtractPage(ctx, session)
		if err != nil {
			return nil, fmt.Errorf("page %d extraction failed: %w", session.CurrentPage(), err)
		}

		rows = append(rows, pageRows...)
		log.Info("page extracted", "page", session.CurrentPage(), "rows", len(pageRows))

		var more bool

		more, err = adapter.NextPage(ctx, session)
		if err != nil {
			return nil, fmt.Errorf("failed to advance past page %d: %w", session.CurrentPage(), err)
		}

		if !more {
			break
		}

		if err = d.awaitListing(ctx, session, adapter.ListingSelector(), log); err != nil {
			return nil, err
		}
	}

	d.move(log, &state, StateDone)
	log.Info("run complete", "rows", len(rows), "pages", session.CurrentPage())

	return rows, nil
}

// enter tries each configured entry URL in order until one loads.
func (d *Driver) enter(ctx context.Context, session browser.Session, jur *config.JurisdictionConfig, log *logger.Logger) error {
	urls := jur.GetAllURLs()

	for _, u := range urls {
		if err := session.Navigate(ctx, u); err != nil {
			log.Warn("entry url failed", "url", u, "error", err)

			continue
		}

		log.Debug("entry url loaded", "url", u)

		return nil
	}

	return fmt.Errorf("%w: %d tried", ErrAllEntryURLsFailed, len(urls))
}

// awaitListing waits for the listing container, retrying once before giving
// up. Slow portals get a second window; a second miss is fatal.
func (d *Driver) awaitListing(ctx context.Context, session browser.Session, selector string, log *logger.Logger) error {
	err := session.WaitReady(ctx, selector, d.pageTimeout)
	if err == nil {
		return nil
	}

	log.Warn("listing not ready, retrying once", "selector", selector, "error", err)

	if err := session.WaitReady(ctx, selector, d.pageTimeout); err != nil {
		return fmt.Errorf("%w: %s", ErrListingNotReady, selector)
	}

	return nil
}

// move records a state transition.
func (d *Driver) move(log *logger.Logger, state *State, next State) {
	log.Debug("state transition", "from", string(*state), "to", string(next))
	*state = next
}
