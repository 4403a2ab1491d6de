// Package transition writes CRM stage changes and their audit entries.
//
// An Applier is the only writer of opportunity stages. Calls are idempotent
// on the target stage: a record already at the target yields no write and no
// audit row. The applier trusts its caller to have validated the target.
package transition

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AndersD76/portalpili-producao-sub005/internal/logging"
	"github.com/AndersD76/portalpili-producao-sub005/internal/store"
	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

// RecordWriter is the transactional surface the applier needs. *store.Tx
// satisfies it.
type RecordWriter interface {
	CurrentStage(ctx context.Context, recordID int64) (workflow.Stage, bool, error)
	SetStage(ctx context.Context, recordID int64, stage workflow.Stage, at time.Time) error
	AppendInteraction(ctx context.Context, in workflow.Interaction) (int64, error)
}

// Applier applies stage changes to CRM opportunities.
type Applier struct {
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes an Applier.
type Option func(*Applier)

// WithClock overrides the time source used for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Applier) {
		if now != nil {
			a.now = now
		}
	}
}

// New builds an Applier backed by st.
func New(st *store.Store, logger *slog.Logger, opts ...Option) *Applier {
	a := &Applier{
		store:  st,
		logger: logging.NewComponentLogger(logger, "transition"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ApplyStageChange moves recordID to stage to in its own transaction. It
// returns false when the record already sits at to.
func (a *Applier) ApplyStageChange(ctx context.Context, recordID int64, from, to workflow.Stage, source string) (bool, error) {
	var changed bool
	err := a.store.InTx(ctx, func(tx *store.Tx) error {
		var err error
		changed, err = a.Within(tx).ApplyStageChange(ctx, recordID, from, to, source)
		return err
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// Within binds the applier to a caller-owned transaction so the business
// write commits or rolls back together with the caller's own writes.
func (a *Applier) Within(w RecordWriter) *Bound {
	return &Bound{applier: a, writer: w}
}

// Bound is an Applier bound to one transaction.
type Bound struct {
	applier *Applier
	writer  RecordWriter
	tokenID *int64
}

// ForToken tags audit entries written through b with a workflow token id.
func (b *Bound) ForToken(tokenID int64) *Bound {
	clone := *b
	clone.tokenID = &tokenID
	return &clone
}

// ApplyStageChange writes the stage and appends an interaction. The observed
// stage is recorded alongside from; when they differ the record drifted since
// the caller looked at it and the change is still applied.
func (b *Bound) ApplyStageChange(ctx context.Context, recordID int64, from, to workflow.Stage, source string) (bool, error) {
	current, ok, err := b.writer.CurrentStage(ctx, recordID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("%w: %d", workflow.ErrRecordNotFound, recordID)
	}
	if current == to {
		return false, nil
	}

	logger := logging.WithContext(ctx, b.applier.logger).With(
		logging.Int64(logging.FieldRecordID, recordID),
		logging.String("source", source),
	)
	if from != "" && current != from {
		logger.Warn("record stage drifted since issuance",
			logging.Alert("stage_drift"),
			logging.String("expected_stage", string(from)),
			logging.String("observed_stage", string(current)),
			logging.String("target_stage", string(to)),
		)
	}

	at := b.applier.now().UTC()
	if err := b.writer.SetStage(ctx, recordID, to, at); err != nil {
		return false, err
	}
	if _, err := b.writer.AppendInteraction(ctx, workflow.Interaction{
		RecordID:      recordID,
		FromState:     string(from),
		ToState:       string(to),
		ObservedState: string(current),
		Source:        source,
		TokenID:       b.tokenID,
		CreatedAt:     at,
	}); err != nil {
		return false, err
	}
	logger.Debug("stage changed", logging.String("from", string(current)), logging.String("to", string(to)))
	return true, nil
}
