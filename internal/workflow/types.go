package workflow

import (
	"strings"
	"time"
)

// TokenHorizon is how long an issued link stays usable.
const TokenHorizon = 7 * 24 * time.Hour

// Kind identifies which business process a token drives.
type Kind string

const (
	KindStatusCheck    Kind = "STATUS_CHECK"
	KindBudgetAnalysis Kind = "BUDGET_ANALYSIS"
)

// Allows reports whether state belongs to the allowed-state set for k.
func (k Kind) Allows(state string) bool {
	switch k {
	case KindStatusCheck:
		_, ok := ParseStage(state)
		return ok
	case KindBudgetAnalysis:
		_, ok := ParseDecision(state)
		return ok
	default:
		return false
	}
}

// Status is the persisted header status.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusPartial  Status = "PARTIAL"
	StatusComplete Status = "COMPLETE"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	// StatusExpired is only ever reported, never written.
	StatusExpired Status = "EXPIRED"
)

// Stage is a CRM pipeline stage, the allowed-state set for STATUS_CHECK.
type Stage string

const (
	StageProspecting   Stage = "prospecting"
	StageQualification Stage = "qualification"
	StageProposal      Stage = "proposal"
	StageNegotiation   Stage = "negotiation"
	StageWon           Stage = "won"
	StageLost          Stage = "lost"
	StageOnHold        Stage = "on_hold"
)

var allStages = []Stage{
	StageProspecting,
	StageQualification,
	StageProposal,
	StageNegotiation,
	StageWon,
	StageLost,
	StageOnHold,
}

var stageSet = func() map[Stage]struct{} {
	set := make(map[Stage]struct{}, len(allStages))
	for _, stage := range allStages {
		set[stage] = struct{}{}
	}
	return set
}()

// Stages returns the pipeline stages in display order.
func Stages() []Stage {
	out := make([]Stage, len(allStages))
	copy(out, allStages)
	return out
}

// ParseStage normalizes and validates a pipeline stage.
func ParseStage(value string) (Stage, bool) {
	stage := Stage(strings.ToLower(strings.TrimSpace(value)))
	_, ok := stageSet[stage]
	return stage, ok
}

// Decision is the allowed-state set for BUDGET_ANALYSIS.
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

// ParseDecision normalizes and validates an approval decision.
func ParseDecision(value string) (Decision, bool) {
	switch Decision(strings.ToUpper(strings.TrimSpace(value))) {
	case DecisionApproved:
		return DecisionApproved, true
	case DecisionRejected:
		return DecisionRejected, true
	}
	return "", false
}

// Status maps a decision to the header status it produces.
func (d Decision) Status() Status {
	if d == DecisionApproved {
		return StatusApproved
	}
	return StatusRejected
}

// AnalysisPriorState is the prior_state snapshot of the implicit analysis item.
const AnalysisPriorState = string(StatusPending)

// Interaction sources written by the stage transition applier.
const (
	SourceStatusCheck = "status_check_link"
	SourceManualEdit  = "manual_edit"
)

// Header is the workflow-level record for one token.
type Header struct {
	ID              int64
	Token           string
	Kind            Kind
	SubjectID       int64
	Status          Status
	TotalItems      int
	RespondedItems  int
	CreatedAt       time.Time
	ExpiresAt       time.Time
	DecidedAt       *time.Time
	NotifyRecipient string
	NotifyMessageID string
}

// Expired reports whether now is past the token's horizon. A token is still
// live at exactly ExpiresAt.
func (h *Header) Expired(now time.Time) bool {
	return now.After(h.ExpiresAt)
}

// EffectiveStatus returns the status a client should see at now.
func (h *Header) EffectiveStatus(now time.Time) Status {
	if h.Expired(now) {
		return StatusExpired
	}
	return h.Status
}

// Item is one business record's before/after state within a token.
type Item struct {
	ID               int64
	TokenID          int64
	RecordID         int64
	PriorState       string
	NewState         string
	Note             string
	AdjustedDiscount *float64
	RespondedAt      *time.Time
}

// Answered reports whether the item already received its one response.
func (i *Item) Answered() bool {
	return i.RespondedAt != nil
}

// Token bundles a header with its items and, for analysis tokens, the
// proposal snapshot taken at issuance.
type Token struct {
	Header   Header
	Items    []Item
	Proposal *Proposal
}

// ItemByRecord finds the item referencing recordID.
func (t *Token) ItemByRecord(recordID int64) (*Item, bool) {
	for i := range t.Items {
		if t.Items[i].RecordID == recordID {
			return &t.Items[i], true
		}
	}
	return nil, false
}

// Proposal is the budget snapshot an approver is asked to decide on.
type Proposal struct {
	ID              int64   `json:"id"`
	Customer        string  `json:"customer"`
	Title           string  `json:"title"`
	Amount          float64 `json:"amount"`
	DiscountPercent float64 `json:"discountPercent"`
	Currency        string  `json:"currency,omitempty"`
	Notes           string  `json:"notes,omitempty"`
}

// NetAmount applies the proposal discount to its amount.
func (p Proposal) NetAmount() float64 {
	return p.Amount * (1 - p.DiscountPercent/100)
}

// Artifact describes the single rendered binary attached to an approved
// analysis token.
type Artifact struct {
	TokenID     int64
	BlobKey     string
	ContentType string
	SizeBytes   int64
	SHA256      string
	GeneratedAt time.Time
}

// Interaction is an append-only audit entry for a business record stage change.
type Interaction struct {
	ID            int64
	RecordID      int64
	FromState     string
	ToState       string
	ObservedState string
	Source        string
	TokenID       *int64
	CreatedAt     time.Time
}

// Opportunity is the CRM record whose pipeline stage status checks confirm.
type Opportunity struct {
	ID        int64
	Title     string
	OwnerID   int64
	Stage     Stage
	UpdatedAt time.Time
}
