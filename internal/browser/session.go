// Package browser models the portal automation capability that jurisdiction
// adapters drive: navigate, locate, read, click, fill. The pipeline never
// assumes a concrete engine; HTTPSession covers server-rendered portals and
// tests provide scripted sessions.
package browser

import (
	"context"
	"errors"
	"time"
)

// Session operation errors.
var (
	ErrNoDocument    = errors.New("no document loaded")
	ErrNotClickable  = errors.New("element is not clickable")
	ErrNoSuchElement = errors.New("no such element")
	ErrWaitTimeout   = errors.New("timed out waiting for element")
)

// Element is a handle to a located piece of portal markup.
type Element interface {
	// Text returns the element's trimmed text content.
	Text() string
	// Attr returns the named attribute and whether it is present.
	Attr(name string) (string, bool)
	// Find returns descendants matching the CSS selector, in document order.
	Find(selector string) []Element
	// First returns the first descendant matching the selector.
	First(selector string) (Element, bool)
}

// Session is one adapter's exclusive window onto a portal. Sessions are not
// safe for concurrent use: a session can only be in one logical page state
// at a time. Close must be called on every exit path.
type Session interface {
	// Navigate loads the given URL and makes it the current document.
	Navigate(ctx context.Context, url string) error
	// WaitReady blocks until an element matching selector is present in the
	// current document, or the timeout elapses. Implementations backed by
	// static documents may fail immediately instead of polling.
	WaitReady(ctx context.Context, selector string, timeout time.Duration) error
	// Locate returns the first element matching the CSS selector.
	Locate(selector string) (Element, bool)
	// LocateAll returns all elements matching the CSS selector.
	LocateAll(selector string) []Element
	// Click activates the element. Anchors navigate; submit controls submit
	// their enclosing form with any values recorded by Fill.
	Click(ctx context.Context, el Element) error
	// Fill records a value for a form control, applied on the next submit.
	Fill(el Element, value string) error
	// Fetch downloads a raw resource (e.g. a CSV export) within the
	// session's cookie context.
	Fetch(ctx context.Context, url string) ([]byte, error)
	// CurrentURL returns the current document's URL, or "".
	CurrentURL() string
	// CurrentPage returns the 1-based ordinal of the current listing page
	// within this navigation sequence.
	CurrentPage() int
	// Close releases the session's resources.
	Close() error
}

// Factory builds a fresh session for one adapter run.
type Factory func(ctx context.Context) (Session, error)
