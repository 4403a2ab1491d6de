package api

import (
	"time"

	"github.com/AndersD76/portalpili-producao-sub005/internal/reconcile"
	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

// FromHeader converts a header, reporting the status as observed at now.
func FromHeader(h workflow.Header, now time.Time) Header {
	return Header{
		Kind:           string(h.Kind),
		SubjectID:      h.SubjectID,
		Status:         string(h.EffectiveStatus(now)),
		TotalItems:     h.TotalItems,
		RespondedItems: h.RespondedItems,
		CreatedAt:      formatTime(h.CreatedAt),
		ExpiresAt:      formatTime(h.ExpiresAt),
		DecidedAt:      formatTimePtr(h.DecidedAt),
	}
}

// FromItem converts an item. title is the record title when known.
func FromItem(item workflow.Item, title string) Item {
	return Item{
		ItemRef:                 item.RecordID,
		Title:                   title,
		PriorState:              item.PriorState,
		NewState:                item.NewState,
		Note:                    item.Note,
		AdjustedDiscountPercent: item.AdjustedDiscount,
		Answered:                item.Answered(),
		RespondedAt:             formatTimePtr(item.RespondedAt),
	}
}

// NewStatusCheckView builds the status-check page model. titles maps record
// ids to display titles and may be nil.
func NewStatusCheckView(tok *workflow.Token, titles map[int64]string, now time.Time) StatusCheckView {
	items := make([]Item, 0, len(tok.Items))
	for _, item := range tok.Items {
		items = append(items, FromItem(item, titles[item.RecordID]))
	}
	stages := workflow.Stages()
	allowed := make([]string, 0, len(stages))
	for _, stage := range stages {
		allowed = append(allowed, string(stage))
	}
	return StatusCheckView{
		Header:        FromHeader(tok.Header, now),
		Items:         items,
		AllowedStates: allowed,
	}
}

// FromProposal converts a proposal snapshot.
func FromProposal(p *workflow.Proposal) *Proposal {
	if p == nil {
		return nil
	}
	return &Proposal{
		ID:              p.ID,
		Customer:        p.Customer,
		Title:           p.Title,
		Amount:          p.Amount,
		DiscountPercent: p.DiscountPercent,
		NetAmount:       p.NetAmount(),
		Currency:        p.Currency,
		Notes:           p.Notes,
	}
}

// ToProposal converts a request proposal into the workflow snapshot.
func ToProposal(p Proposal) workflow.Proposal {
	return workflow.Proposal{
		ID:              p.ID,
		Customer:        p.Customer,
		Title:           p.Title,
		Amount:          p.Amount,
		DiscountPercent: p.DiscountPercent,
		Currency:        p.Currency,
		Notes:           p.Notes,
	}
}

// NewAnalysisView builds the analysis page model. artifactLink is set only
// when an artifact is attached.
func NewAnalysisView(tok *workflow.Token, artifactLink string, now time.Time) AnalysisView {
	view := AnalysisView{
		Header:           FromHeader(tok.Header, now),
		Proposal:         FromProposal(tok.Proposal),
		AllowedDecisions: []string{string(workflow.DecisionApproved), string(workflow.DecisionRejected)},
		ArtifactLink:     artifactLink,
	}
	if len(tok.Items) > 0 && tok.Items[0].Answered() {
		item := tok.Items[0]
		view.Decision = &Decision{
			Decision:                item.NewState,
			AdjustedDiscountPercent: item.AdjustedDiscount,
			Note:                    item.Note,
			DecidedAt:               formatTimePtr(item.RespondedAt),
		}
	}
	return view
}

// ToResponses converts a submission into reconciler input.
func ToResponses(req ResponsesRequest) []reconcile.Response {
	out := make([]reconcile.Response, 0, len(req.Responses))
	for _, r := range req.Responses {
		out = append(out, reconcile.Response{ItemRef: r.ItemRef, NewState: r.NewState, Note: r.Note})
	}
	return out
}

// FromResult converts a reconciler result.
func FromResult(res reconcile.Result, now time.Time) ResponsesResult {
	skipped := make([]SkippedResponse, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		skipped = append(skipped, SkippedResponse{ItemRef: s.ItemRef, Reason: string(s.Reason)})
	}
	return ResponsesResult{
		AppliedCount: res.Applied,
		Skipped:      skipped,
		Header:       FromHeader(res.Header, now),
	}
}

// FromArtifact converts stored artifact metadata.
func FromArtifact(a *workflow.Artifact, link string) ArtifactResponse {
	return ArtifactResponse{
		ArtifactLink: link,
		ContentType:  a.ContentType,
		SizeBytes:    a.SizeBytes,
		SHA256:       a.SHA256,
		GeneratedAt:  formatTime(a.GeneratedAt),
	}
}

// NewIssueResponse describes a freshly issued token.
func NewIssueResponse(h workflow.Header, link string, queued bool) IssueResponse {
	return IssueResponse{
		Token:              h.Token,
		Link:               link,
		ExpiresAt:          formatTime(h.ExpiresAt),
		NotificationQueued: queued,
	}
}
