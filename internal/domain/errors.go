package domain

import "errors"

var (
	// ErrValidation marks bad input to a public operation.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing record.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a state transition that lost a race or is not allowed.
	ErrConflict = errors.New("conflict")
	// ErrSystemic marks failures that abort a whole job or sweep, as opposed
	// to per-item failures that are absorbed into job state.
	ErrSystemic = errors.New("systemic error")
)
