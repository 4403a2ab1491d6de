package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// WebhookSender posts messages as JSON to a messaging provider.
type WebhookSender struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewWebhookSender builds a sender for endpoint. A nil client uses
// http.DefaultClient.
func NewWebhookSender(endpoint, token string, client *http.Client) *WebhookSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookSender{endpoint: endpoint, token: token, client: client}
}

type webhookRequest struct {
	To      string   `json:"to"`
	Title   string   `json:"title,omitempty"`
	Message string   `json:"message"`
	Tags    []string `json:"tags,omitempty"`
}

type webhookResponse struct {
	MessageID string `json:"messageId"`
	ID        string `json:"id"`
}

func (w *WebhookSender) Send(ctx context.Context, recipient string, msg Message) (Receipt, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return Receipt{}, fmt.Errorf("webhook send: recipient is empty")
	}
	body, err := json.Marshal(webhookRequest{
		To:      recipient,
		Title:   msg.Title,
		Message: msg.Body,
		Tags:    msg.Tags,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return Receipt{}, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("send webhook notification: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(raw))
		if len(snippet) > 2048 {
			snippet = snippet[:2048]
		}
		return Receipt{}, fmt.Errorf("webhook returned %d: %s", resp.StatusCode, snippet)
	}

	receipt := Receipt{Delivered: true}
	var decoded webhookResponse
	if len(bytes.TrimSpace(raw)) > 0 && json.Unmarshal(raw, &decoded) == nil {
		receipt.ProviderMessageID = decoded.MessageID
		if receipt.ProviderMessageID == "" {
			receipt.ProviderMessageID = decoded.ID
		}
	}
	return receipt, nil
}
