// Package config loads, normalizes, and validates portal configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PORTAL_INTERNAL_TOKEN and PORTAL_DATABASE_DSN so secrets can stay out of
// the file. The Config type centralizes every knob the server and CLI need.
//
// The token horizon and the allowed-state sets are fixed in code and are
// deliberately absent from this package.
package config
