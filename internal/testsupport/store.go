package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/AndersD76/portalpili-producao-sub005/internal/config"
	"github.com/AndersD76/portalpili-producao-sub005/internal/store"
	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedOpportunity inserts a CRM opportunity at the given stage.
func SeedOpportunity(t testing.TB, st *store.Store, id int64, stage workflow.Stage) workflow.Opportunity {
	t.Helper()

	opp := workflow.Opportunity{
		ID:        id,
		Title:     "Opportunity",
		OwnerID:   1,
		Stage:     stage,
		UpdatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := st.UpsertOpportunity(context.Background(), opp); err != nil {
		t.Fatalf("store.UpsertOpportunity: %v", err)
	}
	return opp
}

// MustStage reads the current stage of an opportunity.
func MustStage(t testing.TB, st *store.Store, id int64) workflow.Stage {
	t.Helper()

	opp, err := st.GetOpportunity(context.Background(), id)
	if err != nil {
		t.Fatalf("store.GetOpportunity: %v", err)
	}
	if opp == nil {
		t.Fatalf("opportunity %d not found", id)
	}
	return opp.Stage
}

// MustLookup loads a token regardless of expiry.
func MustLookup(t testing.TB, st *store.Store, token string) *workflow.Token {
	t.Helper()

	tok, err := st.LookupToken(context.Background(), token)
	if err != nil {
		t.Fatalf("store.LookupToken: %v", err)
	}
	return tok
}
