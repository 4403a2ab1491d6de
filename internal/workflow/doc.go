// Package workflow holds the domain model shared by every part of the
// token-authorized response engine: workflow kinds, header and item shapes,
// the allowed-state enumerations and the error taxonomy.
//
// Two kinds exist. STATUS_CHECK tokens carry one item per CRM opportunity and
// move PENDING -> PARTIAL -> COMPLETE as answers arrive. BUDGET_ANALYSIS
// tokens carry a single implicit item and move PENDING -> APPROVED or
// REJECTED. EXPIRED is never stored; it is derived from ExpiresAt at access
// time.
//
// Header counts are always derived from item rows. NextStatus is the single
// place that turns a count into a status.
package workflow
