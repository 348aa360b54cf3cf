package reservation

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a reservation record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusSubmitted,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends the record's lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Outcome is the terminal result recorded by Complete.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

func (o Outcome) status() Status {
	if o == OutcomeCompleted {
		return StatusCompleted
	}
	return StatusFailed
}

// Record is one reservation row, keyed by idempotency key.
type Record struct {
	IdempotencyKey string
	ManifestID     string
	Status         Status
	OwnerToken     string
	JobReference   string
	OutputPrefix   string
	OutcomeReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ExpiresAt      time.Time
}

// ReserveResult reports the outcome of a Reserve call.
type ReserveResult struct {
	// Acquired is true for exactly one caller among any number racing on the
	// same key.
	Acquired bool
	// Existing is the record that blocked acquisition. Nil when Acquired.
	Existing *Record
}

// StatsSummary aggregates record counts per lifecycle state.
type StatsSummary struct {
	Total     int
	Pending   int
	Submitted int
	Completed int
	Failed    int
}
