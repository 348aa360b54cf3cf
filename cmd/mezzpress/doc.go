// Package main hosts the mezzpress CLI entrypoint and command graph.
//
// The Cobra-based command tree covers one-shot orchestration runs, reservation
// inspection, maintenance sweeps, configuration scaffolding, and notification
// checks. It centralizes configuration resolution and store access so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
