// Package models defines data structures shared by the scrape and sync pipeline.
package models

// Confidence describes how a field value was located in portal markup.
type Confidence string

const (
	// ConfidenceExact means a structural locator (fixed column, CSV cell) matched.
	ConfidenceExact Confidence = "exact"
	// ConfidenceHeuristic means a fallback locator (label proximity, regex) matched.
	ConfidenceHeuristic Confidence = "heuristic"
	// ConfidenceNone means no locator matched.
	ConfidenceNone Confidence = "none"
)

// Field is one best-effort extracted value with its provenance.
type Field struct {
	Value      string     `json:"value"`
	Link       string     `json:"link,omitempty"`
	Confidence Confidence `json:"confidence"`
}

// RawRow is the ordered field set extracted from one listing row. It is
// ephemeral: produced by the extraction pipeline and consumed immediately
// by canonicalization.
type RawRow struct {
	names  []string
	fields map[string]Field
}

// NewRawRow creates an empty row.
func NewRawRow() *RawRow {
	return &RawRow{fields: make(map[string]Field)}
}

// Set stores a field value, preserving first-set order.
func (r *RawRow) Set(name string, f Field) {
	if _, ok := r.fields[name]; !ok {
		r.names = append(r.names, name)
	}
	r.fields[name] = f
}

// Get returns the field and whether it was extracted.
func (r *RawRow) Get(name string) (Field, bool) {
	f, ok := r.fields[name]
	return f, ok
}

// Value returns the field's text, or "" when the field is absent.
func (r *RawRow) Value(name string) string {
	return r.fields[name].Value
}

// Link returns the field's link, or "" when absent.
func (r *RawRow) Link(name string) string {
	return r.fields[name].Link
}

// Names returns field names in first-set order.
func (r *RawRow) Names() []string {
	return r.names
}

// Len returns the number of fields set on the row.
func (r *RawRow) Len() int {
	return len(r.names)
}
