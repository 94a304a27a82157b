// Package core defines the fundamental types and errors for Meridian.
package core

import "errors"

// Core errors that can occur across the system
var (
	// Storage errors
	ErrItemNotFound    = errors.New("item not found")
	ErrDuplicateItem   = errors.New("duplicate item")
	ErrMigrationFailed = errors.New("migration failed")

	// Lifecycle errors
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyDone       = errors.New("item is already done")

	// Validation errors
	ErrEmptyText     = errors.New("item text is empty")
	ErrInvalidEffort = errors.New("invalid effort level")
	ErrInvalidDate   = errors.New("invalid date, want YYYY-MM-DD")

	// Capture errors
	ErrCaptureUnavailable = errors.New("capture model unavailable")
)
