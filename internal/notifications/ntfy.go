package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// NtfySender publishes to an ntfy topic URL. ntfy has no per-recipient
// addressing, so the recipient is carried in the title.
type NtfySender struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewNtfySender builds a sender for a topic URL. A nil client uses
// http.DefaultClient.
func NewNtfySender(endpoint, token string, client *http.Client) *NtfySender {
	if client == nil {
		client = http.DefaultClient
	}
	return &NtfySender{endpoint: endpoint, token: token, client: client}
}

func (n *NtfySender) Send(ctx context.Context, recipient string, msg Message) (Receipt, error) {
	if n == nil || n.client == nil {
		return Receipt{}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.Body))
	if err != nil {
		return Receipt{}, fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	title := msg.Title
	if recipient = strings.TrimSpace(recipient); recipient != "" {
		title = strings.TrimSpace(title + " (" + recipient + ")")
	}
	if title != "" {
		req.Header.Set("Title", title)
	}
	if len(msg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.Tags, ","))
	}
	if msg.Priority != "" && msg.Priority != "default" {
		req.Header.Set("Priority", msg.Priority)
	}
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Receipt{}, fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	receipt := Receipt{Delivered: true}
	var published struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&published); err == nil {
		receipt.ProviderMessageID = published.ID
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return receipt, nil
}
