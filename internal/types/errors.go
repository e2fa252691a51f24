package types

import "errors"

var (
	// ErrMissingData is returned when a price is required but absent.
	ErrMissingData = errors.New("missing data")
	// ErrInvalidState is returned when an operation violates book or run invariants.
	ErrInvalidState = errors.New("invalid state")
)
