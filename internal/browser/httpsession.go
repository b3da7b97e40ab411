package browser

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"rfpsonar/pkg/utils"
)

// HTTPSession drives server-rendered portals over plain HTTP: documents are
// fetched and parsed statically, anchors navigate, and form submissions are
// replayed as GET/POST requests. Portals that require script execution need
// a different Session implementation behind the same interface.
type HTTPSession struct {
	fetcher *Fetcher
	helper  *utils.HTTPHelper

	doc     *goquery.Document
	baseURL string
	page    int
	fills   map[*htmlElement]string
}

var _ Session = (*HTTPSession)(nil)

// NewHTTPSession creates a session backed by the given fetcher.
func NewHTTPSession(fetcher *Fetcher) *HTTPSession {
	return &HTTPSession{
		fetcher: fetcher,
		helper:  utils.NewHTTPHelper(),
		fills:   make(map[*htmlElement]string),
	}
}

// Navigate loads the given URL and makes it the current document.
func (s *HTTPSession) Navigate(ctx context.Context, rawURL string) error {
	return s.load(ctx, rawURL, false)
}

// WaitReady checks that an element matching selector is present. The document
// is static, so absence fails immediately rather than polling.
func (s *HTTPSession) WaitReady(ctx context.Context, selector string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.doc == nil {
		return ErrNoDocument
	}

	if _, ok := s.Locate(selector); !ok {
		return fmt.Errorf("%w: %s", ErrWaitTimeout, selector)
	}

	return nil
}

// Locate returns the first element matching the CSS selector.
func (s *HTTPSession) Locate(selector string) (Element, bool) {
	if s.doc == nil {
		return nil, false
	}

	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, false
	}

	return wrapSelection(sel), true
}

// LocateAll returns all elements matching the CSS selector.
func (s *HTTPSession) LocateAll(selector string) []Element {
	if s.doc == nil {
		return nil
	}

	var out []Element

	s.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, wrapSelection(sel))
	})

	return out
}

// Click activates the element: anchors navigate, submit controls submit
// their enclosing form with any values recorded by Fill.
func (s *HTTPSession) Click(ctx context.Context, el Element) error {
	he, ok := el.(*htmlElement)
	if !ok || he.sel.Length() == 0 {
		return ErrNotClickable
	}

	if href, hasHref := he.Attr("href"); hasHref && href != "" && !strings.HasPrefix(href, "javascript:") && !strings.HasPrefix(href, "#") {
		target := s.helper.AbsoluteURL(s.baseURL, href)
		if target == "" {
			return ErrNotClickable
		}

		return s.load(ctx, target, true)
	}

	form := he.sel.Closest("form")
	if form.Length() > 0 {
		return s.submitForm(ctx, form, he)
	}

	return ErrNotClickable
}

// Fill records a value for a form control, applied on the next submit.
func (s *HTTPSession) Fill(el Element, value string) error {
	he, ok := el.(*htmlElement)
	if !ok || he.sel.Length() == 0 {
		return ErrNoSuchElement
	}

	s.fills[he] = value

	return nil
}

// Fetch downloads a raw resource within the session's cookie context.
// Relative URLs resolve against the current document.
func (s *HTTPSession) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	target := s.helper.AbsoluteURL(s.baseURL, rawURL)
	if target == "" {
		return nil, fmt.Errorf("%w: cannot resolve %q", ErrNoSuchElement, rawURL)
	}

	body, _, err := s.fetcher.Get(ctx, target)

	return body, err
}

// CurrentURL returns the current document's URL, or "".
func (s *HTTPSession) CurrentURL() string {
	return s.baseURL
}

// CurrentPage returns the 1-based ordinal of the current document within
// this navigation sequence. Navigate resets it; clicks advance it.
func (s *HTTPSession) CurrentPage() int {
	return s.page
}

// Close releases the session's resources.
func (s *HTTPSession) Close() error {
	s.doc = nil
	s.fills = make(map[*htmlElement]string)

	return nil
}

func (s *HTTPSession) load(ctx context.Context, rawURL string, advance bool) error {
	body, finalURL, err := s.fetcher.Get(ctx, rawURL)
	if err != nil {
		return err
	}

	return s.setDocument(body, finalURL, advance)
}

func (s *HTTPSession) setDocument(body []byte, docURL string, advance bool) error {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	s.doc = doc
	s.baseURL = docURL
	if advance {
		s.page++
	} else {
		s.page = 1
	}
	// Old handles are stale once the document changes.
	s.fills = make(map[*htmlElement]string)

	return nil
}

// submitForm replays a form submission over HTTP. Values come from the
// form's controls, overridden by recorded fills; only the clicked submit
// control contributes its own name/value pair.
func (s *HTTPSession) submitForm(ctx context.Context, form *goquery.Selection, submitter *htmlElement) error {
	values := url.Values{}

	form.Find("input").Each(func(_ int, sel *goquery.Selection) {
		name, hasName := sel.Attr("name")
		if !hasName || name == "" {
			return
		}

		inputType, _ := sel.Attr("type")
		switch strings.ToLower(inputType) {
		case "submit", "image", "button":
			el := wrapSelection(sel)
			if sameNode(el, submitter) {
				if v, ok := sel.Attr("value"); ok {
					values.Set(name, v)
				}
			}
		case "checkbox", "radio":
			if v, ok := s.fillFor(sel); ok {
				values.Set(name, v)
			} else if _, checked := sel.Attr("checked"); checked {
				v, _ := sel.Attr("value")
				if v == "" {
					v = "on"
				}
				values.Set(name, v)
			}
		default:
			if v, ok := s.fillFor(sel); ok {
				values.Set(name, v)
			} else if v, hasValue := sel.Attr("value"); hasValue {
				values.Set(name, v)
			}
		}
	})

	form.Find("select").Each(func(_ int, sel *goquery.Selection) {
		name, hasName := sel.Attr("name")
		if !hasName || name == "" {
			return
		}

		if v, ok := s.fillFor(sel); ok {
			values.Set(name, v)

			return
		}

		option := sel.Find("option[selected]").First()
		if option.Length() == 0 {
			option = sel.Find("option").First()
		}
		if option.Length() > 0 {
			if v, ok := option.Attr("value"); ok {
				values.Set(name, v)
			} else {
				values.Set(name, strings.TrimSpace(option.Text()))
			}
		}
	})

	form.Find("textarea").Each(func(_ int, sel *goquery.Selection) {
		name, hasName := sel.Attr("name")
		if !hasName || name == "" {
			return
		}

		if v, ok := s.fillFor(sel); ok {
			values.Set(name, v)
		} else {
			values.Set(name, strings.TrimSpace(sel.Text()))
		}
	})

	action, _ := form.Attr("action")
	target := s.baseURL
	if action != "" {
		target = s.helper.AbsoluteURL(s.baseURL, action)
		if target == "" {
			return ErrNotClickable
		}
	}

	method, _ := form.Attr("method")
	if strings.EqualFold(method, "post") {
		body, finalURL, err := s.fetcher.PostForm(ctx, target, values)
		if err != nil {
			return err
		}

		return s.setDocument(body, finalURL, true)
	}

	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid form action %q: %w", target, err)
	}
	u.RawQuery = values.Encode()

	return s.load(ctx, u.String(), true)
}

// fillFor returns the recorded fill value for a form control, if any.
func (s *HTTPSession) fillFor(sel *goquery.Selection) (string, bool) {
	control := wrapSelection(sel)
	for el, v := range s.fills {
		if sameNode(el, control) {
			return v, true
		}
	}

	return "", false
}
