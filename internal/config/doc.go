// Package config loads, normalizes, and validates mezzpress configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// daemon and CLI need: watched directories, encoder endpoint and timeouts,
// pipeline feature flags, reservation lifetimes, and notification settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
