package models

import "errors"

var (
	ErrInvalidFilter     = errors.New("invalid filter")
	ErrInvalidEvent      = errors.New("invalid event")
	ErrInvalidReport     = errors.New("invalid report")
	ErrOwnerCannotReport = errors.New("you cannot report your own event")
	ErrDuplicateReport   = errors.New("you have already reported this event")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("authentication required")
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStoreUnavailable wraps failures of the backing store. Adapters join it
	// with the driver error so both can be matched with errors.Is.
	ErrStoreUnavailable = errors.New("store unavailable")
)
