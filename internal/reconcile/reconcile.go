// Package reconcile merges external answers into workflow tokens.
//
// Each response is applied in its own transaction: the item compare-and-set,
// the optional stage change and the header recount commit together. Problems
// with a single response are reported as skips; only token-level failures
// and persistence errors end a batch early.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/AndersD76/portalpili-producao-sub005/internal/logging"
	"github.com/AndersD76/portalpili-producao-sub005/internal/store"
	"github.com/AndersD76/portalpili-producao-sub005/internal/telemetry"
	"github.com/AndersD76/portalpili-producao-sub005/internal/transition"
	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

// Response is one external answer inside a status-check batch. ItemRef is
// the business record id the item points at.
type Response struct {
	ItemRef  int64
	NewState string
	Note     string
}

// Skip reports a response that was not applied.
type Skip struct {
	ItemRef int64
	Reason  workflow.SkipReason
}

// Result summarizes one ApplyResponses call.
type Result struct {
	Applied int
	Skipped []Skip
	Header  workflow.Header
}

// Reconciler applies responses and decisions.
type Reconciler struct {
	store   *store.Store
	applier *transition.Applier
	logger  *slog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

// Option customizes a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the time source used for expiry and timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithMetrics records applied and skipped responses.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// New builds a Reconciler.
func New(st *store.Store, applier *transition.Applier, logger *slog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:   st,
		applier: applier,
		logger:  logging.NewComponentLogger(logger, "reconcile"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var errAnswerLost = errors.New("answer lost compare-and-set")

// ApplyResponses applies a batch of status-check answers in submission order.
func (r *Reconciler) ApplyResponses(ctx context.Context, token string, responses []Response) (Result, error) {
	ctx = logging.WithToken(ctx, token)
	tok, err := r.store.GetByToken(ctx, token, r.now().UTC())
	if err != nil {
		r.rejected(ctx, err)
		return Result{}, err
	}
	if tok.Header.Kind != workflow.KindStatusCheck {
		return Result{}, workflow.ErrWrongKind
	}
	logger := logging.WithContext(ctx, r.logger).With(logging.Int64(logging.FieldTokenID, tok.Header.ID))

	result := Result{}
	skip := func(ref int64, reason workflow.SkipReason) {
		result.Skipped = append(result.Skipped, Skip{ItemRef: ref, Reason: reason})
		r.metrics.ResponseSkipped(ctx, string(reason))
	}

	for _, resp := range responses {
		item, ok := tok.ItemByRecord(resp.ItemRef)
		if !ok {
			skip(resp.ItemRef, workflow.SkipUnknownItem)
			continue
		}
		if item.Answered() {
			skip(resp.ItemRef, workflow.SkipAlreadyAnswered)
			continue
		}
		if !tok.Header.Kind.Allows(resp.NewState) {
			skip(resp.ItemRef, workflow.SkipInvalidState)
			continue
		}
		stage, _ := workflow.ParseStage(resp.NewState)

		at := r.now().UTC()
		err := r.store.InTx(ctx, func(tx *store.Tx) error {
			won, err := tx.AnswerItem(ctx, store.AnswerInput{
				ItemID:      item.ID,
				NewState:    string(stage),
				Note:        resp.Note,
				RespondedAt: at,
			})
			if err != nil {
				return err
			}
			if !won {
				return errAnswerLost
			}
			if string(stage) != item.PriorState {
				if _, err := r.applier.Within(tx).ForToken(tok.Header.ID).ApplyStageChange(
					ctx, item.RecordID, workflow.Stage(item.PriorState), stage, workflow.SourceStatusCheck,
				); err != nil {
					return err
				}
			}
			return tx.RefreshCounts(ctx, tok.Header.ID)
		})
		switch {
		case err == nil:
			now := at
			item.NewState = string(stage)
			item.Note = resp.Note
			item.RespondedAt = &now
			result.Applied++
		case errors.Is(err, errAnswerLost):
			if tok.Header.Expired(at) {
				r.rejected(ctx, workflow.ErrExpired)
				return r.finish(ctx, tok.Header.ID, result, workflow.ErrExpired)
			}
			skip(resp.ItemRef, workflow.SkipAlreadyAnswered)
		case errors.Is(err, workflow.ErrRecordNotFound):
			logger.Warn("record missing for answered item",
				logging.Int64(logging.FieldRecordID, item.RecordID),
				logging.Alert("record_missing"),
			)
			skip(resp.ItemRef, workflow.SkipRecordMissing)
		default:
			return r.finish(ctx, tok.Header.ID, result, fmt.Errorf("apply response for record %d: %w", resp.ItemRef, err))
		}
	}

	r.metrics.ResponsesApplied(ctx, result.Applied)
	result, err = r.finish(ctx, tok.Header.ID, result, nil)
	if err != nil {
		return result, err
	}
	logger.Info("responses applied",
		logging.Int("applied", result.Applied),
		logging.Int("skipped", len(result.Skipped)),
		logging.String("status", string(result.Header.Status)),
		logging.Int("responded_items", result.Header.RespondedItems),
		logging.Int("total_items", result.Header.TotalItems),
	)
	return result, nil
}

// finish reloads the header so callers always see the recomputed counts.
func (r *Reconciler) finish(ctx context.Context, tokenID int64, result Result, cause error) (Result, error) {
	fresh, err := r.store.LookupTokenByID(ctx, tokenID)
	if err != nil {
		if cause != nil {
			return result, cause
		}
		return result, fmt.Errorf("reload header: %w", err)
	}
	result.Header = fresh.Header
	return result, cause
}

// ApplyApproval records the decision for a budget-analysis token. Only the
// first decision wins; later calls get ErrAlreadyDecided and leave the stored
// decision untouched. Decisions never change CRM stages.
func (r *Reconciler) ApplyApproval(ctx context.Context, token, decision string, adjustedDiscount *float64, note string) (*workflow.Header, error) {
	ctx = logging.WithToken(ctx, token)
	now := r.now().UTC()
	tok, err := r.store.GetByToken(ctx, token, now)
	if err != nil {
		r.rejected(ctx, err)
		return nil, err
	}
	if tok.Header.Kind != workflow.KindBudgetAnalysis {
		return nil, workflow.ErrWrongKind
	}
	if !tok.Header.Kind.Allows(decision) {
		return nil, fmt.Errorf("%w: %q", workflow.ErrInvalidState, decision)
	}
	parsed, _ := workflow.ParseDecision(decision)
	if adjustedDiscount != nil {
		d := *adjustedDiscount
		if math.IsNaN(d) || d < 0 || d > 100 {
			return nil, fmt.Errorf("%w: adjusted discount %v outside [0, 100]", workflow.ErrInvalidState, d)
		}
	}
	if tok.Header.Status != workflow.StatusPending {
		r.metrics.Decision(ctx, "conflict")
		return nil, workflow.ErrAlreadyDecided
	}

	won, err := r.store.Decide(ctx, store.DecisionInput{
		TokenID:          tok.Header.ID,
		Decision:         parsed,
		Note:             note,
		AdjustedDiscount: adjustedDiscount,
		DecidedAt:        now,
	})
	if err != nil {
		return nil, err
	}
	fresh, err := r.store.LookupTokenByID(ctx, tok.Header.ID)
	if err != nil {
		return nil, fmt.Errorf("reload header: %w", err)
	}
	if !won {
		if fresh.Header.Status == workflow.StatusPending && fresh.Header.Expired(now) {
			r.rejected(ctx, workflow.ErrExpired)
			return nil, workflow.ErrExpired
		}
		r.metrics.Decision(ctx, "conflict")
		return nil, workflow.ErrAlreadyDecided
	}

	r.metrics.Decision(ctx, string(parsed))
	attrs := []logging.Attr{
		logging.Int64(logging.FieldTokenID, fresh.Header.ID),
		logging.String("decision", string(parsed)),
	}
	if adjustedDiscount != nil {
		attrs = append(attrs, logging.Float64("adjusted_discount", *adjustedDiscount))
	}
	logging.WithContext(ctx, r.logger).Info("analysis decided", logging.Args(attrs...)...)
	return &fresh.Header, nil
}

func (r *Reconciler) rejected(ctx context.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrExpired):
		r.metrics.AccessRejected(ctx, "expired")
	case errors.Is(err, workflow.ErrNotFound):
		r.metrics.AccessRejected(ctx, "not_found")
	}
}
