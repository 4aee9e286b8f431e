package models

import "fmt"

// DataIntegrityReport is the outcome of a structural or referential
// audit. Counts are populated regardless of validity so observability
// survives failure.
type DataIntegrityReport struct {
	// Valid is true until the first error is recorded; once false it
	// never reverts within the same report.
	Valid bool `json:"valid"`

	// Errors is the ordered list of violations, in discovery order.
	Errors []string `json:"errors,omitempty"`

	// Counts holds per-collection record counts of the audited set.
	Counts CollectionCounts `json:"counts"`
}

// NewDataIntegrityReport builds a valid empty report over the given counts.
func NewDataIntegrityReport(counts CollectionCounts) *DataIntegrityReport {
	return &DataIntegrityReport{Valid: true, Counts: counts}
}

// AddError appends one violation and marks the report invalid.
func (r *DataIntegrityReport) AddError(format string, args ...any) {
	r.Valid = false
	if len(args) == 0 {
		r.Errors = append(r.Errors, format)
		return
	}
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// ErrorCount returns the number of recorded violations.
func (r *DataIntegrityReport) ErrorCount() int {
	return len(r.Errors)
}
