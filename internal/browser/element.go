package browser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// htmlElement wraps a goquery selection as an Element handle.
type htmlElement struct {
	sel *goquery.Selection
}

func wrapSelection(sel *goquery.Selection) *htmlElement {
	return &htmlElement{sel: sel}
}

// Text returns the element's trimmed text content.
func (e *htmlElement) Text() string {
	return strings.TrimSpace(e.sel.Text())
}

// Attr returns the named attribute and whether it is present.
func (e *htmlElement) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

// Find returns descendants matching the CSS selector, in document order.
func (e *htmlElement) Find(selector string) []Element {
	var out []Element

	e.sel.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, wrapSelection(sel))
	})

	return out
}

// First returns the first descendant matching the selector.
func (e *htmlElement) First(selector string) (Element, bool) {
	sel := e.sel.Find(selector).First()
	if sel.Length() == 0 {
		return nil, false
	}

	return wrapSelection(sel), true
}

// sameNode reports whether two elements wrap the same underlying node.
func sameNode(a, b *htmlElement) bool {
	if a.sel.Length() == 0 || b.sel.Length() == 0 {
		return false
	}

	return a.sel.Get(0) == b.sel.Get(0)
}
