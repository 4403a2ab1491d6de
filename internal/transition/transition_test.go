package transition_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AndersD76/portalpili-producao-sub005/internal/logging"
	"github.com/AndersD76/portalpili-producao-sub005/internal/store"
	"github.com/AndersD76/portalpili-producao-sub005/internal/testsupport"
	"github.com/AndersD76/portalpili-producao-sub005/internal/transition"
	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

type fakeWriter struct {
	stages       map[int64]workflow.Stage
	interactions []workflow.Interaction
	failSet      error
}

func (f *fakeWriter) CurrentStage(_ context.Context, id int64) (workflow.Stage, bool, error) {
	stage, ok := f.stages[id]
	return stage, ok, nil
}

func (f *fakeWriter) SetStage(_ context.Context, id int64, stage workflow.Stage, _ time.Time) error {
	if f.failSet != nil {
		return f.failSet
	}
	f.stages[id] = stage
	return nil
}

func (f *fakeWriter) AppendInteraction(_ context.Context, in workflow.Interaction) (int64, error) {
	f.interactions = append(f.interactions, in)
	return int64(len(f.interactions)), nil
}

func TestBoundApplyStageChange(t *testing.T) {
	clock := testsupport.NewClock()
	applier := transition.New(nil, logging.NewNop(), transition.WithClock(clock.Now))
	ctx := context.Background()

	t.Run("applies and audits", func(t *testing.T) {
		w := &fakeWriter{stages: map[int64]workflow.Stage{1: workflow.StageProposal}}
		changed, err := applier.Within(w).ForToken(77).ApplyStageChange(ctx, 1, workflow.StageProposal, workflow.StageWon, workflow.SourceStatusCheck)
		if err != nil || !changed {
			t.Fatalf("expected change, got %v %v", changed, err)
		}
		if w.stages[1] != workflow.StageWon {
			t.Fatalf("stage not written: %q", w.stages[1])
		}
		if len(w.interactions) != 1 {
			t.Fatalf("expected one interaction, got %d", len(w.interactions))
		}
		in := w.interactions[0]
		if in.FromState != "proposal" || in.ToState != "won" || in.ObservedState != "proposal" || in.Source != workflow.SourceStatusCheck {
			t.Fatalf("unexpected interaction: %+v", in)
		}
		if in.TokenID == nil || *in.TokenID != 77 || !in.CreatedAt.Equal(clock.Now()) {
			t.Fatalf("unexpected interaction metadata: %+v", in)
		}
	})

	t.Run("idempotent on target", func(t *testing.T) {
		w := &fakeWriter{stages: map[int64]workflow.Stage{1: workflow.StageWon}}
		changed, err := applier.Within(w).ApplyStageChange(ctx, 1, workflow.StageProposal, workflow.StageWon, workflow.SourceStatusCheck)
		if err != nil || changed {
			t.Fatalf("expected no-op, got %v %v", changed, err)
		}
		if len(w.interactions) != 0 {
			t.Fatalf("no-op must not audit: %+v", w.interactions)
		}
	})

	t.Run("drift records observed stage", func(t *testing.T) {
		w := &fakeWriter{stages: map[int64]workflow.Stage{1: workflow.StageNegotiation}}
		changed, err := applier.Within(w).ApplyStageChange(ctx, 1, workflow.StageProposal, workflow.StageLost, workflow.SourceStatusCheck)
		if err != nil || !changed {
			t.Fatalf("expected change despite drift, got %v %v", changed, err)
		}
		if in := w.interactions[0]; in.FromState != "proposal" || in.ObservedState != "negotiation" {
			t.Fatalf("unexpected drift interaction: %+v", in)
		}
	})

	t.Run("missing record", func(t *testing.T) {
		w := &fakeWriter{stages: map[int64]workflow.Stage{}}
		_, err := applier.Within(w).ApplyStageChange(ctx, 9, "", workflow.StageWon, workflow.SourceManualEdit)
		if !errors.Is(err, workflow.ErrRecordNotFound) {
			t.Fatalf("expected ErrRecordNotFound, got %v", err)
		}
	})

	t.Run("write failure surfaces", func(t *testing.T) {
		boom := errors.New("boom")
		w := &fakeWriter{stages: map[int64]workflow.Stage{1: workflow.StageProposal}, failSet: boom}
		_, err := applier.Within(w).ApplyStageChange(ctx, 1, workflow.StageProposal, workflow.StageWon, workflow.SourceStatusCheck)
		if !errors.Is(err, boom) {
			t.Fatalf("expected write error, got %v", err)
		}
		if len(w.interactions) != 0 {
			t.Fatal("failed write must not audit")
		}
	})
}

func TestApplyStageChangeManualEdit(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedOpportunity(t, st, 3, workflow.StageQualification)
	applier := transition.New(st, logging.NewNop())
	ctx := context.Background()

	changed, err := applier.ApplyStageChange(ctx, 3, workflow.StageQualification, workflow.StageOnHold, workflow.SourceManualEdit)
	if err != nil || !changed {
		t.Fatalf("expected change, got %v %v", changed, err)
	}
	changed, err = applier.ApplyStageChange(ctx, 3, workflow.StageQualification, workflow.StageOnHold, workflow.SourceManualEdit)
	if err != nil || changed {
		t.Fatalf("expected idempotent no-op, got %v %v", changed, err)
	}

	if stage := testsupport.MustStage(t, st, 3); stage != workflow.StageOnHold {
		t.Fatalf("unexpected stage %q", stage)
	}
	entries, err := st.ListInteractions(ctx, store.InteractionFilter{RecordID: 3})
	if err != nil {
		t.Fatalf("ListInteractions: %v", err)
	}
	if len(entries) != 1 || entries[0].Source != workflow.SourceManualEdit || entries[0].TokenID != nil {
		t.Fatalf("unexpected interactions: %+v", entries)
	}
}
