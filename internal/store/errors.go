package store

import "errors"

// Domain-level store error sentinels.
var (
	// Metric record errors
	ErrNotFound        = errors.New("metric record not found")
	ErrMalformedRecord = errors.New("stored value is not a valid record")

	// Explanation cache errors
	ErrExplanationNotFound = errors.New("explanation not found")

	// Scan errors
	ErrInvalidLimit = errors.New("scan limit must be positive")
)
