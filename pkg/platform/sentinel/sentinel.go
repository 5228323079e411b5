package sentinel

import "errors"

// Sentinel errors for storage facts. Repositories return these (optionally
// wrapped) and services translate them into coded domain errors.
//
//   - ErrNotFound: record does not exist
//   - ErrConflict: compare-and-set lost; the record changed underneath the caller
//   - ErrInvalidState: record is in the wrong state for the requested transition
//   - ErrAlreadyUsed: single-use handle already consumed
//   - ErrExpired: handle or window has elapsed
//   - ErrUnavailable: backing store temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
