package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into domain errors.
//
//   - ErrNotFound: no row for the key (membership number, token, event id)
//   - ErrAlreadyUsed: a unique key is already taken
//   - ErrConflict: a concurrent writer changed the row first
//   - ErrUnavailable: backing service not reachable or not configured
//
// Validation failures (bad input, missing fields) use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrAlreadyUsed = errors.New("already used")
	ErrUnavailable = errors.New("unavailable")
)
