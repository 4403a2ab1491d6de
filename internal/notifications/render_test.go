package notifications_test

import (
	"strings"
	"testing"
	"time"

	"github.com/AndersD76/portalpili-producao-sub005/internal/notifications"
	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

func TestRenderAnalysisLinkLocalizesNumbers(t *testing.T) {
	r := notifications.NewRenderer("pt-BR")
	msg := r.RenderAnalysisLink(workflow.Proposal{
		ID: 3, Customer: "METALÚRGICA SUL", Title: "Linha 2", Amount: 48000, DiscountPercent: 10,
	}, "https://portal.example.com/analysis/abc", time.Date(2025, 3, 17, 12, 0, 0, 0, time.UTC))

	for _, want := range []string{"48.000,00", "43.200,00", "Metalúrgica Sul", "https://portal.example.com/analysis/abc"} {
		if !strings.Contains(msg.Body, want) {
			t.Fatalf("expected %q in %q", want, msg.Body)
		}
	}
	if msg.Priority != "high" {
		t.Fatalf("analysis links should be high priority, got %q", msg.Priority)
	}
}

func TestRenderStatusCheckLink(t *testing.T) {
	r := notifications.NewRenderer("")
	msg := r.RenderStatusCheckLink("https://portal.example.com/status-check/xyz", 1200, time.Now())
	if !strings.Contains(msg.Body, "1.200 oportunidades") {
		t.Fatalf("expected grouped item count, got %q", msg.Body)
	}
	if !strings.Contains(msg.Body, "/status-check/xyz") {
		t.Fatalf("expected link in body, got %q", msg.Body)
	}
}

func TestRenderArtifactReadyWithoutCustomer(t *testing.T) {
	r := notifications.NewRenderer("en-US")
	msg := r.RenderArtifactReady(workflow.Proposal{ID: 77}, "https://portal.example.com/analysis/abc/artifact")
	if !strings.Contains(msg.Body, "proposta #77") {
		t.Fatalf("expected proposal fallback name, got %q", msg.Body)
	}
}
