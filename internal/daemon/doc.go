// Package daemon runs the long-lived mezzpress process: it holds the
// single-instance lock, watches the manifest inbox, fans orchestration runs
// out to a bounded worker pool, and schedules the reservation maintenance
// sweeps.
package daemon
