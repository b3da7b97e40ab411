package normalizer

import (
	"errors"
	"fmt"

	"rfpsonar/internal/models"
)

// Validation errors.
var (
	ErrMissingNumber       = errors.New("missing solicitation number")
	ErrMissingJurisdiction = errors.New("missing jurisdiction")
	ErrMissingTitle        = errors.New("missing title")
	ErrMissingCloseDate    = errors.New("missing close date")
)

// Validator checks canonical records before they reach the sync layer.
type Validator struct{}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks that an opportunity carries everything downstream sync
// requires. Title and close date are filled by fallbacks during
// canonicalization, so failures here indicate a record was built outside
// the normal path.
func (v *Validator) Validate(opp *models.CanonicalOpportunity) error {
	if opp.SolicitationNumber == "" {
		return ErrMissingNumber
	}

	if opp.Jurisdiction == "" {
		return fmt.Errorf("%w for %s", ErrMissingJurisdiction, opp.SolicitationNumber)
	}

	if opp.Title == "" {
		return fmt.Errorf("%w for %s", ErrMissingTitle, opp.SolicitationNumber)
	}

	if opp.CloseDate.IsZero() {
		return fmt.Errorf("%w for %s", ErrMissingCloseDate, opp.SolicitationNumber)
	}

	return nil
}
