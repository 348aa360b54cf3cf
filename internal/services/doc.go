// Package services defines shared helpers consumed by the workflow and the
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp manifest IDs, workflow states, and request
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the pipeline's error taxonomy (input, contention, transient,
//     validation, ambiguous).
//
// Use these helpers when wiring new pipeline logic so error handling and
// observability stay uniform.
package services
