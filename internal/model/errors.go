package model

import "errors"

// Sentinel errors shared across the intake pipeline.
var (
	// ErrNotFound reports a missing local file or record.
	ErrNotFound = errors.New("not found")

	// ErrTimeout reports that the vision call exceeded its budget. The
	// caller should tell the user to try again rather than report a
	// hard failure.
	ErrTimeout = errors.New("analysis timed out")

	// ErrDuplicateBatch reports that a batch unit already succeeded or is
	// in flight. It is a no-op signal, not a failure.
	ErrDuplicateBatch = errors.New("batch already processed")
)
