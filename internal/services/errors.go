package services

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy markers. Input and validation failures are terminal,
// contention is routine and terminal for the losing instance, transient
// failures are retried with backoff, and ambiguous failures are deferred to
// reap/reconciliation rather than guessed at.
var (
	ErrInput      = errors.New("input error")
	ErrContention = errors.New("contention")
	ErrTransient  = errors.New("transient failure")
	ErrValidation = errors.New("validation error")
	ErrAmbiguous  = errors.New("ambiguous outcome")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether the workflow may retry the failed operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Classify returns the taxonomy label for an error, used in notifications and
// operator-facing reasons.
func Classify(err error) string {
	switch {
	case errors.Is(err, ErrInput):
		return "input"
	case errors.Is(err, ErrContention):
		return "contention"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrAmbiguous):
		return "ambiguous"
	case errors.Is(err, ErrTransient):
		return "transient"
	default:
		return "internal"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
