// Package identity derives the stable idempotency key that identifies one
// unit of transcode work.
//
// A WorkUnit is the normalized (content, encoding profile) tuple; Derive
// hashes it into a Key that is identical for identical tuples across
// processes and time. The key is what the reservation store deduplicates on,
// so changing any tuple component (most usefully the profile version) yields
// a new key and therefore a fresh encode.
//
// Derive performs no I/O and fails only on malformed input.
package identity
