package storage

import "errors"

// Sentinels shared by every backend. Callers match them with errors.Is.
var (
	// ErrNotFound means no token record exists for the mint.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey means a report with the same id was already stored.
	ErrDuplicateKey = errors.New("duplicate report id")

	// ErrInvalidInput rejects nil records and empty keys before any I/O.
	ErrInvalidInput = errors.New("invalid storage input")
)
