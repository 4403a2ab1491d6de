package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Error codes let link pages tell failure modes apart.
const (
	CodeNotFound           = "not_found"
	CodeExpired            = "expired"
	CodeAlreadyDecided     = "already_decided"
	CodePreconditionFailed = "precondition_failed"
	CodeInvalidRequest     = "invalid_request"
	CodeUnauthorized       = "unauthorized"
	CodeRateLimited        = "rate_limited"
	CodeInternal           = "internal"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Header describes a token's workflow state.
type Header struct {
	Kind           string `json:"kind"`
	SubjectID      int64  `json:"subjectId"`
	Status         string `json:"status"`
	TotalItems     int    `json:"totalItems"`
	RespondedItems int    `json:"respondedItems"`
	CreatedAt      string `json:"createdAt"`
	ExpiresAt      string `json:"expiresAt"`
	DecidedAt      string `json:"decidedAt,omitempty"`
}

// Item is one record awaiting or holding an answer.
type Item struct {
	ItemRef                 int64    `json:"itemRef"`
	Title                   string   `json:"title,omitempty"`
	PriorState              string   `json:"priorState"`
	NewState                string   `json:"newState,omitempty"`
	Note                    string   `json:"note,omitempty"`
	AdjustedDiscountPercent *float64 `json:"adjustedDiscountPercent,omitempty"`
	Answered                bool     `json:"answered"`
	RespondedAt             string   `json:"respondedAt,omitempty"`
}

// StatusCheckView is returned by GET /status-check/{token}.
type StatusCheckView struct {
	Header        Header   `json:"header"`
	Items         []Item   `json:"items"`
	AllowedStates []string `json:"allowedStates"`
}

// ResponseInput is one answer inside a submission.
type ResponseInput struct {
	ItemRef  int64  `json:"itemRef"`
	NewState string `json:"newState"`
	Note     string `json:"note,omitempty"`
}

// ResponsesRequest is the body of PUT /status-check/{token}.
type ResponsesRequest struct {
	Responses []ResponseInput `json:"responses"`
}

// SkippedResponse reports an answer that was not applied.
type SkippedResponse struct {
	ItemRef int64  `json:"itemRef"`
	Reason  string `json:"reason"`
}

// ResponsesResult is returned by PUT /status-check/{token}.
type ResponsesResult struct {
	AppliedCount int               `json:"appliedCount"`
	Skipped      []SkippedResponse `json:"skipped"`
	Header       Header            `json:"header"`
}

// Proposal is the budget under analysis.
type Proposal struct {
	ID              int64   `json:"id"`
	Customer        string  `json:"customer"`
	Title           string  `json:"title"`
	Amount          float64 `json:"amount"`
	DiscountPercent float64 `json:"discountPercent"`
	NetAmount       float64 `json:"netAmount"`
	Currency        string  `json:"currency,omitempty"`
	Notes           string  `json:"notes,omitempty"`
}

// Decision is the recorded outcome of an analysis.
type Decision struct {
	Decision                string   `json:"decision"`
	AdjustedDiscountPercent *float64 `json:"adjustedDiscountPercent,omitempty"`
	Note                    string   `json:"note,omitempty"`
	DecidedAt               string   `json:"decidedAt,omitempty"`
}

// AnalysisView is returned by GET /analysis/{token}.
type AnalysisView struct {
	Header           Header    `json:"header"`
	Proposal         *Proposal `json:"proposal"`
	Decision         *Decision `json:"decision,omitempty"`
	AllowedDecisions []string  `json:"allowedDecisions"`
	ArtifactLink     string    `json:"artifactLink,omitempty"`
}

// DecisionRequest is the body of POST /analysis/{token}/decision.
type DecisionRequest struct {
	Decision                string   `json:"decision"`
	AdjustedDiscountPercent *float64 `json:"adjustedDiscountPercent,omitempty"`
	Note                    string   `json:"note,omitempty"`
}

// HeaderResponse wraps a header.
type HeaderResponse struct {
	Header Header `json:"header"`
}

// ArtifactResponse is returned after an upload.
type ArtifactResponse struct {
	ArtifactLink string `json:"artifactLink"`
	ContentType  string `json:"contentType"`
	SizeBytes    int64  `json:"sizeBytes"`
	SHA256       string `json:"sha256"`
	GeneratedAt  string `json:"generatedAt"`
}

// IssueStatusCheckRequest is the body of POST /internal/status-check.
type IssueStatusCheckRequest struct {
	SubjectID int64   `json:"subjectId"`
	Items     []int64 `json:"items"`
	Recipient string  `json:"recipient,omitempty"`
}

// IssueAnalysisRequest is the body of POST /internal/analysis.
type IssueAnalysisRequest struct {
	SubjectID int64    `json:"subjectId"`
	Proposal  Proposal `json:"proposal"`
	Recipient string   `json:"recipient,omitempty"`
}

// IssueResponse is returned by the internal issuing endpoints.
type IssueResponse struct {
	Token              string `json:"token"`
	Link               string `json:"link"`
	ExpiresAt          string `json:"expiresAt"`
	NotificationQueued bool   `json:"notificationQueued"`
}

// Health is returned by GET /healthz.
type Health struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}
