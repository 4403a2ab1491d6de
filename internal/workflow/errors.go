package workflow

import "errors"

var (
	// ErrNotFound means the token is unknown. It deliberately covers every
	// way a token can fail to resolve.
	ErrNotFound = errors.New("token not found")
	// ErrExpired means the token exists but is past its horizon.
	ErrExpired = errors.New("token expired")
	// ErrInvalidState marks a response outside the kind's allowed states.
	ErrInvalidState = errors.New("state not allowed for workflow")
	// ErrPreconditionFailed marks an operation attempted in the wrong header state.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrAlreadyDecided marks a second decision on an analysis token.
	ErrAlreadyDecided = errors.New("already decided")
	// ErrRecordNotFound marks an issuance that references an unknown business record.
	ErrRecordNotFound = errors.New("business record not found")
	// ErrNoItems marks a status check issued without item references.
	ErrNoItems = errors.New("at least one item is required")
	// ErrWrongKind marks an operation aimed at a token of the other workflow kind.
	ErrWrongKind = errors.New("operation not supported for workflow kind")
)

// SkipReason explains why a response in a batch was not applied.
type SkipReason string

const (
	SkipAlreadyAnswered SkipReason = "already_answered"
	SkipInvalidState    SkipReason = "invalid_state"
	SkipUnknownItem     SkipReason = "not_found"
	// SkipRecordMissing marks an answer whose business record vanished
	// after issuance.
	SkipRecordMissing SkipReason = "record_not_found"
)
