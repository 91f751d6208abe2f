// Package logging assembles structured slog loggers and formatting helpers used
// across the arbiter daemon and CLI.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so request handling code can
// automatically tag log lines with request IDs, sources, and systems. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Prefer these constructors over hand-rolled slog setup so every producer and
// the arbiter emit data with the same shape and routing guarantees.
package logging
