// Package notifications delivers terminal workflow events to an operator
// webhook. Delivery is best effort and at-least-once; consumers deduplicate
// on the idempotency key plus outcome carried in every event.
package notifications
