// Package logging assembles structured slog loggers and formatting helpers used
// across portal services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so request handlers can tag log
// lines with request ids and token prefixes. Tokens are bearer credentials:
// only TokenPrefix output may reach a log line. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
package logging
