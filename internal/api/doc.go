// Package api defines the JSON wire types of the public link pages and the
// internal issuing endpoints, plus converters from workflow models.
//
// DTOs use camelCase JSON tags for the browser pages that render them.
// Timestamps use RFC3339 with milliseconds in UTC. Tokens are never echoed
// back in views; the caller already holds the one it used.
package api
