// Package logging builds the slog loggers used across the daemon and CLI.
//
// It supports a human-oriented console format and a machine-oriented JSON
// format, selected through configuration. Attr helpers keep call sites terse
// and field name constants keep key naming consistent between components so
// log queries do not have to deal with drift.
//
// Use NewComponentLogger when wiring a subsystem so every record carries a
// component attribute.
package logging
