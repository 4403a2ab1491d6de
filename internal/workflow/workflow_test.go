package workflow_test

import (
	"testing"
	"time"

	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

func TestNextStatus(t *testing.T) {
	cases := []struct {
		name      string
		current   workflow.Status
		responded int
		total     int
		want      workflow.Status
	}{
		{"nothing answered", workflow.StatusPending, 0, 3, workflow.StatusPending},
		{"some answered", workflow.StatusPending, 2, 3, workflow.StatusPartial},
		{"all answered", workflow.StatusPartial, 3, 3, workflow.StatusComplete},
		{"complete is sticky", workflow.StatusComplete, 1, 3, workflow.StatusComplete},
		{"partial never returns to pending", workflow.StatusPartial, 0, 3, workflow.StatusPartial},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := workflow.NextStatus(tc.current, tc.responded, tc.total); got != tc.want {
				t.Fatalf("NextStatus(%s, %d, %d) = %s, want %s", tc.current, tc.responded, tc.total, got, tc.want)
			}
		})
	}
}

func TestRegresses(t *testing.T) {
	if !workflow.Regresses(workflow.StatusPartial, workflow.StatusPending) {
		t.Fatal("PARTIAL -> PENDING should regress")
	}
	if !workflow.Regresses(workflow.StatusComplete, workflow.StatusPartial) {
		t.Fatal("COMPLETE -> PARTIAL should regress")
	}
	if workflow.Regresses(workflow.StatusPending, workflow.StatusApproved) {
		t.Fatal("PENDING -> APPROVED is forward")
	}
}

func TestKindAllows(t *testing.T) {
	if !workflow.KindStatusCheck.Allows(" Negotiation ") {
		t.Fatal("expected stage names to be normalized")
	}
	if workflow.KindStatusCheck.Allows("APPROVED") {
		t.Fatal("decisions are not stages")
	}
	if !workflow.KindBudgetAnalysis.Allows("rejected") {
		t.Fatal("expected decision to be accepted case-insensitively")
	}
	if workflow.KindBudgetAnalysis.Allows("won") {
		t.Fatal("stages are not decisions")
	}
	if workflow.Kind("OTHER").Allows("won") {
		t.Fatal("unknown kind allows nothing")
	}
}

func TestHeaderExpiry(t *testing.T) {
	expires := time.Date(2025, 3, 17, 9, 0, 0, 0, time.UTC)
	h := workflow.Header{Status: workflow.StatusPartial, ExpiresAt: expires}

	if h.Expired(expires.Add(-time.Second)) {
		t.Fatal("token should be live before its horizon")
	}
	if h.Expired(expires) {
		t.Fatal("token should still be live at exactly its horizon")
	}
	if !h.Expired(expires.Add(time.Nanosecond)) {
		t.Fatal("token should expire once now passes its horizon")
	}
	if got := h.EffectiveStatus(expires.Add(time.Hour)); got != workflow.StatusExpired {
		t.Fatalf("expected EXPIRED view, got %s", got)
	}
	if h.Status != workflow.StatusPartial {
		t.Fatal("EffectiveStatus must not mutate the header")
	}
}

func TestProposalNetAmount(t *testing.T) {
	p := workflow.Proposal{Amount: 1000, DiscountPercent: 15}
	if got := p.NetAmount(); got != 850 {
		t.Fatalf("NetAmount = %v, want 850", got)
	}
}
