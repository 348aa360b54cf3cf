// Package workflow drives one orchestration instance per inbound manifest:
// input verification, admission through the reservation store, encoder
// submission with bounded retries, the long transcode wait, output
// validation, and terminal notification. Instances share no in-process
// state; every cross-instance decision goes through the reservation store's
// conditional writes, so concurrent instances on separate machines behave
// identically to concurrent goroutines.
package workflow
