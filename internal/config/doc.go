// Package config loads, normalizes, and validates gamearbiter configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ARBITER_NTFY_TOPIC. The Config type centralizes every knob the daemon and CLI
// need, including the per-source producer tables whose debounce, cooldown and
// poll windows are filled in here so producers never see a zero duration.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
