package reservation

import "errors"

var (
	// ErrStaleReservation is returned when a guarded transition finds the
	// record missing, reaped, or already advanced by another owner. Callers
	// must abort rather than double-submit.
	ErrStaleReservation = errors.New("stale reservation")

	// ErrConflictingOutcome is returned when Complete is called with a
	// different outcome than the one already recorded. Terminal states never
	// regress.
	ErrConflictingOutcome = errors.New("conflicting outcome")
)
