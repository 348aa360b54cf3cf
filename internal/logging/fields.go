package logging

// Shared structured log field names. Components use these constants so the
// same concept always lands under the same key.
const (
	FieldComponent      = "component"
	FieldManifestID     = "manifest_id"
	FieldIdempotencyKey = "idempotency_key"
	FieldJobReference   = "job_reference"
	FieldState          = "state"
	FieldRequestID      = "request_id"
	FieldEventType      = "event_type"
)
