// Package reservation persists the admission records that guarantee each
// work unit is transcoded at most once.
//
// The Store is backed by SQLite and enforces the uniqueness invariant with
// atomic conditional writes: Reserve is a create-if-absent insert where
// exactly one of any number of racing callers wins, Confirm and Complete are
// guarded updates that only advance a record along the
// pending -> submitted -> {completed|failed} lifecycle, never backward.
//
// No other component writes reservation rows. The workflow owns when
// transitions happen; this package owns that they happen atomically.
//
// Records stuck in pending past a configurable age are reclaimed by ReapStale
// so abandoned work never blocks a retry forever.
package reservation
