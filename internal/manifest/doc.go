// Package manifest parses and validates transcode manifest XML files.
//
// A manifest describes one episode's mezzanine source, its audio and subtitle
// tracks, and the expected duration. Parsing is strict about the fields the
// pipeline depends on (checksum, size, duration, track languages) and lenient
// about presentation metadata. Validated manifests convert directly into the
// identity.WorkUnit the orchestrator admits work with.
package manifest
