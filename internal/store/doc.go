// Package store persists workflow tokens, their items, artifact metadata,
// CRM opportunities and the interaction audit trail.
//
// SQLite (modernc.org/sqlite) is the default backend; PostgreSQL (lib/pq) is
// selected with database.driver = "postgres". Queries are written once with
// "?" placeholders and rebound per dialect.
//
// Every mutation that must not be lost or duplicated under concurrent
// submissions is a conditional update: items are answered only while
// responded_at IS NULL and the token is unexpired, analysis decisions only
// while the header is PENDING, and header counts only ever move up. Expiry is
// never written; GetByToken compares expires_at with the caller's clock.
//
// Timestamps are stored as fixed-width UTC text so SQL string comparison is
// chronological comparison on both backends. Schema changes bump the version
// in schema.go; operators recreate the database to adopt a new schema.
package store
