package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for an unknown entity identifier
	ErrNotFound = errors.New("entity not found")
	// ErrInsufficientHistory is returned when a forecast needs more observed periods
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrMissingRate is returned when a rate-dependent value has a zero divisor
	ErrMissingRate = errors.New("collection rate undefined")
	// ErrNoPeer is returned when the catalog holds no other entity to compare with
	ErrNoPeer = errors.New("no peer available")
	// ErrInvalidQuery is returned for malformed query parameters
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNoCatalog is returned before the first batch has been accepted
	ErrNoCatalog = errors.New("no catalog loaded")
	// ErrValidation matches every *ValidationError through errors.Is
	ErrValidation = errors.New("validation failed")
)

// ValidationError rejects a batch at catalog-construction time.
type ValidationError struct {
	EntityID string
	Period   string
	Reason   string
}

func (e *ValidationError) Error() string {
	switch {
	case e.EntityID == "":
		return fmt.Sprintf("invalid batch: %s", e.Reason)
	case e.Period == "":
		return fmt.Sprintf("invalid entity %q: %s", e.EntityID, e.Reason)
	default:
		return fmt.Sprintf("invalid entity %q period %q: %s", e.EntityID, e.Period, e.Reason)
	}
}

// Is makes errors.Is(err, ErrValidation) hold for validation errors.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
