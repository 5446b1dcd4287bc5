package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors or verdicts.
//
//   - ErrNotFound: row does not exist (a site that vanished, no log yet)
//   - ErrConflict: write rejected by a uniqueness or ordering rule
//   - ErrExpired: short-lived record (pending site choice) has lapsed
//   - ErrUnavailable: backing service unreachable; callers treat as offline
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
)
