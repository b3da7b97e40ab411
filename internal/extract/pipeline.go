package extract

import (
	"rfpsonar/internal/browser"
	"rfpsonar/internal/logger"
	"rfpsonar/internal/models"
)

// FieldSpec describes how one field is located: an ordered strategy list,
// tried until the first non-empty result.
type FieldSpec struct {
	Name       string
	Required   bool
	Strategies []Strategy
}

// Pipeline applies field specs to listing rows. It owns no pagination: the
// adapter re-invokes it for each page.
type Pipeline struct {
	log *logger.Logger
}

// NewPipeline creates an extraction pipeline.
func NewPipeline(log *logger.Logger) *Pipeline {
	return &Pipeline{log: log.With("component", "extract")}
}

// ExtractField tries the spec's strategies in order and returns the first
// non-empty result. A strategy that panics counts as a miss, not an error.
// All-miss yields a zero Field with ConfidenceNone.
func (p *Pipeline) ExtractField(row browser.Element, spec FieldSpec) models.Field {
	for _, st := range spec.Strategies {
		res, ok := applyStrategy(st, row)
		if !ok {
			continue
		}

		return models.Field{
			Value:      res.Value,
			Link:       res.Link,
			Confidence: st.Confidence(),
		}
	}

	return models.Field{Confidence: models.ConfidenceNone}
}

// ExtractRow resolves every spec against the row. The second return is false
// when no required field resolved, meaning the row is unusable.
func (p *Pipeline) ExtractRow(row browser.Element, specs []FieldSpec) (*models.RawRow, bool) {
	raw := models.NewRawRow()

	requiredTotal := 0
	requiredHit := 0

	for _, spec := range specs {
		if spec.Required {
			requiredTotal++
		}

		field := p.ExtractField(row, spec)
		if field.Confidence == models.ConfidenceNone {
			continue
		}

		if spec.Required {
			requiredHit++
		}
		raw.Set(spec.Name, field)
	}

	if requiredTotal > 0 && requiredHit == 0 {
		return nil, false
	}

	return raw, true
}

// ExtractRows extracts one page of rows, skipping unusable ones with a
// logged reason.
func (p *Pipeline) ExtractRows(rows []browser.Element, specs []FieldSpec) []*models.RawRow {
	out := make([]*models.RawRow, 0, len(rows))

	for i, row := range rows {
		raw, ok := p.ExtractRow(row, specs)
		if !ok {
			p.log.Warn("skipping row: no required field resolved", "row", i)

			continue
		}

		out = append(out, raw)
	}

	return out
}

// applyStrategy shields the pipeline from strategies that panic on
// unexpected markup; a panic is a miss.
func applyStrategy(st Strategy, row browser.Element) (res Result, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			res, ok = Result{}, false
		}
	}()

	return st.Apply(row)
}
