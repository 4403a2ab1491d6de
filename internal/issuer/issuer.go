// Package issuer creates workflow tokens.
//
// Tokens are 256 random bits rendered as unpadded base64url (43 characters).
// Issuance snapshots each business record's current stage into the item's
// prior_state inside the same transaction that writes the header, so the
// snapshot can never disagree with what was sent out. Issuers never send
// notifications; callers enqueue them once issuance has committed.
package issuer

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/AndersD76/portalpili-producao-sub005/internal/logging"
	"github.com/AndersD76/portalpili-producao-sub005/internal/store"
	"github.com/AndersD76/portalpili-producao-sub005/internal/telemetry"
	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

// TokenBytes is the amount of randomness behind every token.
const TokenBytes = 32

// ErrInvalidRequest marks issuance input that can never succeed.
var ErrInvalidRequest = errors.New("invalid issuance request")

// Issuer issues status-check and budget-analysis tokens.
type Issuer struct {
	store   *store.Store
	logger  *slog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
	random  io.Reader
}

// Option customizes an Issuer.
type Option func(*Issuer)

// WithClock overrides the issuance time source.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// WithMetrics records issuance counts.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(i *Issuer) { i.metrics = m }
}

// WithRandom overrides the token entropy source.
func WithRandom(r io.Reader) Option {
	return func(i *Issuer) {
		if r != nil {
			i.random = r
		}
	}
}

// New builds an Issuer backed by st.
func New(st *store.Store, logger *slog.Logger, opts ...Option) *Issuer {
	i := &Issuer{
		store:  st,
		logger: logging.NewComponentLogger(logger, "issuer"),
		now:    time.Now,
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IssueOption adjusts a single issuance.
type IssueOption func(*store.TokenSpec)

// WithRecipient records who the link is meant for.
func WithRecipient(recipient string) IssueOption {
	return func(spec *store.TokenSpec) { spec.NotifyRecipient = recipient }
}

// GenerateToken draws a fresh token from r.
func GenerateToken(r io.Reader) (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (i *Issuer) newSpec(kind workflow.Kind, subjectID int64, opts []IssueOption) (store.TokenSpec, error) {
	token, err := GenerateToken(i.random)
	if err != nil {
		return store.TokenSpec{}, err
	}
	created := i.now().UTC()
	spec := store.TokenSpec{
		Token:     token,
		Kind:      kind,
		SubjectID: subjectID,
		CreatedAt: created,
		ExpiresAt: created.Add(workflow.TokenHorizon),
	}
	for _, opt := range opts {
		opt(&spec)
	}
	return spec, nil
}

// IssueStatusCheckToken issues a token asking subjectID to confirm the stage
// of every referenced opportunity. Duplicate references collapse to one item.
func (i *Issuer) IssueStatusCheckToken(ctx context.Context, subjectID int64, itemRefs []int64, opts ...IssueOption) (*workflow.Token, error) {
	refs := dedupeRefs(itemRefs)
	if len(refs) == 0 {
		return nil, workflow.ErrNoItems
	}
	spec, err := i.newSpec(workflow.KindStatusCheck, subjectID, opts)
	if err != nil {
		return nil, err
	}

	err = i.store.InTx(ctx, func(tx *store.Tx) error {
		items := make([]store.ItemSpec, 0, len(refs))
		for _, ref := range refs {
			stage, ok, err := tx.CurrentStage(ctx, ref)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %d", workflow.ErrRecordNotFound, ref)
			}
			items = append(items, store.ItemSpec{RecordID: ref, PriorState: string(stage)})
		}
		_, err := tx.InsertToken(ctx, spec, items)
		return err
	})
	if err != nil {
		return nil, err
	}
	return i.finish(ctx, spec)
}

// IssueBudgetAnalysisToken issues a token asking subjectID to approve or
// reject proposal. The proposal is stored as a snapshot on the header.
func (i *Issuer) IssueBudgetAnalysisToken(ctx context.Context, subjectID int64, proposal workflow.Proposal, opts ...IssueOption) (*workflow.Token, error) {
	if err := validateProposal(proposal); err != nil {
		return nil, err
	}
	spec, err := i.newSpec(workflow.KindBudgetAnalysis, subjectID, opts)
	if err != nil {
		return nil, err
	}
	spec.Proposal = &proposal

	err = i.store.InTx(ctx, func(tx *store.Tx) error {
		_, err := tx.InsertToken(ctx, spec, []store.ItemSpec{{
			RecordID:   proposal.ID,
			PriorState: workflow.AnalysisPriorState,
		}})
		return err
	})
	if err != nil {
		return nil, err
	}
	return i.finish(ctx, spec)
}

func (i *Issuer) finish(ctx context.Context, spec store.TokenSpec) (*workflow.Token, error) {
	tok, err := i.store.LookupToken(ctx, spec.Token)
	if err != nil {
		return nil, fmt.Errorf("reload issued token: %w", err)
	}
	i.metrics.TokenIssued(ctx, string(spec.Kind))
	logging.WithContext(ctx, i.logger).Info("token issued",
		logging.Token(spec.Token),
		logging.Int64(logging.FieldTokenID, tok.Header.ID),
		logging.String(logging.FieldKind, string(spec.Kind)),
		logging.Int64("subject_id", spec.SubjectID),
		logging.Int("items", len(tok.Items)),
		logging.String("expires_at", tok.Header.ExpiresAt.Format(time.RFC3339)),
	)
	return tok, nil
}

func dedupeRefs(refs []int64) []int64 {
	seen := make(map[int64]struct{}, len(refs))
	out := make([]int64, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

func validateProposal(p workflow.Proposal) error {
	switch {
	case p.ID <= 0:
		return fmt.Errorf("%w: proposal id must be positive", ErrInvalidRequest)
	case math.IsNaN(p.Amount) || p.Amount < 0:
		return fmt.Errorf("%w: proposal amount must not be negative", ErrInvalidRequest)
	case math.IsNaN(p.DiscountPercent) || p.DiscountPercent < 0 || p.DiscountPercent > 100:
		return fmt.Errorf("%w: discount must be within [0, 100]", ErrInvalidRequest)
	}
	return nil
}
