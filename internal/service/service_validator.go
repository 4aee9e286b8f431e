package service

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-life-tracker/internal/validators"
	"github.com/MKhiriev/go-life-tracker/models"
)

type dataValidator struct {
	validator validators.Validator
}

// NewDataValidator builds the structural validation service on top of
// the field-level entity validator.
func NewDataValidator(validator validators.Validator) DataValidator {
	return &dataValidator{validator: validator}
}

// ValidateEntity checks a single entity and names it in the error.
func (v *dataValidator) ValidateEntity(ctx context.Context, e models.Entity) error {
	if err := v.validator.Validate(ctx, e); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrValidation, e.Kind(), e.EntityID(), err)
	}

	return nil
}

// ValidateAll checks every record of every collection and collects all
// violations instead of stopping at the first one, so a single broken
// record never hides the rest.
func (v *dataValidator) ValidateAll(ctx context.Context, cols models.Collections) *models.DataIntegrityReport {
	report := models.NewDataIntegrityReport(cols.Counts())

	for _, e := range cols.All() {
		if err := v.validator.Validate(ctx, e); err != nil {
			report.AddError("%s %s: %v", e.Kind(), e.EntityID(), err)
		}
	}

	return report
}
