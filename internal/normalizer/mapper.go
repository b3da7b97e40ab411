// Package normalizer turns raw extracted rows into canonical opportunity
// records: closed-vocabulary type/category mapping, date normalization, and
// assembly of the audit description blob.
package normalizer

import (
	"strings"

	"rfpsonar/internal/models"
)

// keywordMapping is one entry of an ordered keyword table. Tables are
// matched top to bottom; the first keyword contained in the input wins.
type keywordMapping struct {
	keyword string
	value   string
}

// typeTable maps solicitation-type keywords to the canonical vocabulary.
// Order matters: earlier entries win.
var typeTable = []keywordMapping{
	{"rfp", string(models.TypeRFP)},
	{"rfb", string(models.TypeRFB)},
	{"rfq", string(models.TypeRFQ)},
	{"rfi", string(models.TypeRFI)},
	{"ifb", string(models.TypeIFB)},
	{"rft", string(models.TypeRFT)},
}

// categoryTable maps category keywords to canonical category names.
var categoryTable = []keywordMapping{
	{"legal", "Legal Services"},
	{"construction", "Construction"},
	{"equipment", "Equipment"},
	{"technology", "Technology/IT Services"},
	{"it services", "Technology/IT Services"},
	{"professional", "Professional Services"},
	{"consulting", "Consulting"},
	{"supplies", "Supplies"},
	{"maintenance", "Maintenance/Repair"},
	{"healthcare", "Healthcare"},
	{"medical", "Healthcare"},
}

// FieldMapper maps free portal text onto the closed canonical vocabulary.
// Every input maps to something: no match yields Other, never an error.
type FieldMapper struct{}

// NewFieldMapper creates a field mapper.
func NewFieldMapper() *FieldMapper {
	return &FieldMapper{}
}

// MapType maps raw solicitation-type text to the canonical type.
func (m *FieldMapper) MapType(raw string) models.CanonicalType {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return models.TypeOther
	}

	for _, entry := range typeTable {
		if strings.Contains(lowered, entry.keyword) {
			return models.CanonicalType(entry.value)
		}
	}

	return models.TypeOther
}

// MapCategory maps raw category text to the canonical category name.
func (m *FieldMapper) MapCategory(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return models.CategoryOther
	}

	for _, entry := range categoryTable {
		if strings.Contains(lowered, entry.keyword) {
			return entry.value
		}
	}

	return models.CategoryOther
}
