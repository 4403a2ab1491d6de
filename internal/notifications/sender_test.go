package notifications_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AndersD76/portalpili-producao-sub005/internal/config"
	"github.com/AndersD76/portalpili-producao-sub005/internal/notifications"
)

func TestNewSenderSelectsProvider(t *testing.T) {
	cfg := config.Default().Notifications

	if _, ok := notifications.NewSender(cfg).(notifications.NoopSender); !ok {
		t.Fatal("expected noop sender when notifications are disabled")
	}

	cfg.Provider = config.ProviderWebhook
	if _, ok := notifications.NewSender(cfg).(notifications.NoopSender); !ok {
		t.Fatal("expected noop sender when webhook url is missing")
	}
	cfg.URL = "https://notify.example.com/send"
	if _, ok := notifications.NewSender(cfg).(*notifications.WebhookSender); !ok {
		t.Fatal("expected webhook sender")
	}

	cfg.Provider = config.ProviderNtfy
	cfg.NtfyTopic = "https://ntfy.sh/portal"
	if _, ok := notifications.NewSender(cfg).(*notifications.NtfySender); !ok {
		t.Fatal("expected ntfy sender")
	}
}

func TestWebhookSenderPostsJSON(t *testing.T) {
	var (
		gotAuth string
		gotBody map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"messageId":"wamid.123"}`)
	}))
	defer server.Close()

	sender := notifications.NewWebhookSender(server.URL, "provider-secret", server.Client())
	receipt, err := sender.Send(context.Background(), "+5511988887777", notifications.Message{
		Title: "Portal",
		Body:  "Confirme o funil",
		Tags:  []string{"portal"},
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if !receipt.Delivered || receipt.ProviderMessageID != "wamid.123" {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if gotAuth != "Bearer provider-secret" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody["to"] != "+5511988887777" || gotBody["message"] != "Confirme o funil" {
		t.Fatalf("unexpected payload: %v", gotBody)
	}
}

func TestWebhookSenderFallsBackToID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"msg-9"}`)
	}))
	defer server.Close()

	receipt, err := notifications.NewWebhookSender(server.URL, "", nil).Send(context.Background(), "ana", notifications.Message{Body: "x"})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if receipt.ProviderMessageID != "msg-9" {
		t.Fatalf("expected id fallback, got %q", receipt.ProviderMessageID)
	}
}

func TestWebhookSenderReportsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	sender := notifications.NewWebhookSender(server.URL, "", nil)
	_, err := sender.Send(context.Background(), "ana", notifications.Message{Body: "x"})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected 429 error, got %v", err)
	}
	if _, err := sender.Send(context.Background(), " ", notifications.Message{Body: "x"}); err == nil {
		t.Fatal("expected empty recipient to fail")
	}
}

func TestNtfySenderFormatsHeaders(t *testing.T) {
	var (
		title, tags, priority, body string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title = r.Header.Get("Title")
		tags = r.Header.Get("Tags")
		priority = r.Header.Get("Priority")
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		_, _ = io.WriteString(w, `{"id":"nt-1","event":"message"}`)
	}))
	defer server.Close()

	sender := notifications.NewNtfySender(server.URL, "", server.Client())
	receipt, err := sender.Send(context.Background(), "ana", notifications.Message{
		Title:    "Portal - Teste",
		Body:     "hello",
		Tags:     []string{"portal", "test"},
		Priority: "low",
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if title != "Portal - Teste (ana)" || tags != "portal,test" || priority != "low" || body != "hello" {
		t.Fatalf("unexpected request: title=%q tags=%q priority=%q body=%q", title, tags, priority, body)
	}
	if receipt.ProviderMessageID != "nt-1" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
}

func TestNoopSender(t *testing.T) {
	receipt, err := notifications.NoopSender{}.Send(context.Background(), "x", notifications.Message{})
	if err != nil || receipt.Delivered {
		t.Fatalf("unexpected noop result: %+v %v", receipt, err)
	}
}
