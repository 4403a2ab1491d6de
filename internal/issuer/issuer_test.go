package issuer_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AndersD76/portalpili-producao-sub005/internal/issuer"
	"github.com/AndersD76/portalpili-producao-sub005/internal/logging"
	"github.com/AndersD76/portalpili-producao-sub005/internal/testsupport"
	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

func TestGenerateTokenShape(t *testing.T) {
	token, err := issuer.GenerateToken(bytes.NewReader(bytes.Repeat([]byte{0xff}, 32)))
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if len(token) != 43 {
		t.Fatalf("expected 43 characters, got %d (%q)", len(token), token)
	}
	if strings.ContainsAny(token, "+/=") {
		t.Fatalf("token is not unpadded base64url: %q", token)
	}
	if _, err := issuer.GenerateToken(bytes.NewReader([]byte{1, 2, 3})); err == nil {
		t.Fatal("expected short entropy to fail")
	}
}

func TestIssueStatusCheckToken(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedOpportunity(t, st, 11, workflow.StageProposal)
	testsupport.SeedOpportunity(t, st, 12, workflow.StageNegotiation)
	clock := testsupport.NewClock()
	iss := issuer.New(st, logging.NewNop(), issuer.WithClock(clock.Now))

	tok, err := iss.IssueStatusCheckToken(context.Background(), 5, []int64{11, 12, 11}, issuer.WithRecipient("+5511999990000"))
	if err != nil {
		t.Fatalf("IssueStatusCheckToken: %v", err)
	}

	if len(tok.Header.Token) != 43 {
		t.Fatalf("unexpected token %q", tok.Header.Token)
	}
	if tok.Header.Kind != workflow.KindStatusCheck || tok.Header.Status != workflow.StatusPending {
		t.Fatalf("unexpected header: %+v", tok.Header)
	}
	if tok.Header.TotalItems != 2 || len(tok.Items) != 2 {
		t.Fatalf("duplicates should collapse: total=%d items=%d", tok.Header.TotalItems, len(tok.Items))
	}
	if !tok.Header.ExpiresAt.Equal(clock.Now().Add(workflow.TokenHorizon)) {
		t.Fatalf("unexpected expiry %v", tok.Header.ExpiresAt)
	}
	if tok.Items[0].PriorState != "proposal" || tok.Items[1].PriorState != "negotiation" {
		t.Fatalf("prior states not snapshotted: %+v", tok.Items)
	}
	if tok.Header.NotifyRecipient != "+5511999990000" {
		t.Fatalf("recipient not stored: %q", tok.Header.NotifyRecipient)
	}
}

func TestIssueStatusCheckTokenRejectsBadInput(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedOpportunity(t, st, 11, workflow.StageProposal)
	iss := issuer.New(st, logging.NewNop())
	ctx := context.Background()

	if _, err := iss.IssueStatusCheckToken(ctx, 5, nil); !errors.Is(err, workflow.ErrNoItems) {
		t.Fatalf("expected ErrNoItems, got %v", err)
	}
	if _, err := iss.IssueStatusCheckToken(ctx, 5, []int64{11, 99}); !errors.Is(err, workflow.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	// A failed issuance leaves nothing behind.
	headers, err := st.ListTokens(ctx, 0, 10)
	if err != nil {
		t.Fatalf("ListTokens: %v", err)
	}
	if len(headers) != 0 {
		t.Fatalf("expected no tokens after failed issuance, got %d", len(headers))
	}
}

func TestIssueBudgetAnalysisToken(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	iss := issuer.New(st, logging.NewNop())
	ctx := context.Background()
	proposal := workflow.Proposal{ID: 300, Customer: "Metalúrgica Sul", Title: "Linha 2", Amount: 48000, DiscountPercent: 8}

	tok, err := iss.IssueBudgetAnalysisToken(ctx, 2, proposal)
	if err != nil {
		t.Fatalf("IssueBudgetAnalysisToken: %v", err)
	}
	if tok.Header.Kind != workflow.KindBudgetAnalysis || tok.Header.TotalItems != 1 {
		t.Fatalf("unexpected header: %+v", tok.Header)
	}
	if tok.Items[0].RecordID != 300 || tok.Items[0].PriorState != "PENDING" {
		t.Fatalf("unexpected implicit item: %+v", tok.Items[0])
	}
	if tok.Proposal == nil || *tok.Proposal != proposal {
		t.Fatalf("proposal snapshot mismatch: %+v", tok.Proposal)
	}

	bad := proposal
	bad.DiscountPercent = 120
	if _, err := iss.IssueBudgetAnalysisToken(ctx, 2, bad); !errors.Is(err, issuer.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestIssuedTokensAreDistinct(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedOpportunity(t, st, 1, workflow.StageProposal)
	iss := issuer.New(st, logging.NewNop())

	seen := map[string]struct{}{}
	for i := 0; i < 20; i++ {
		tok, err := iss.IssueStatusCheckToken(context.Background(), 1, []int64{1})
		if err != nil {
			t.Fatalf("issue %d: %v", i, err)
		}
		if _, dup := seen[tok.Header.Token]; dup {
			t.Fatalf("duplicate token %q", tok.Header.Token)
		}
		seen[tok.Header.Token] = struct{}{}
	}
}
