package notifications

import (
	"context"
	"net/http"
	"time"

	"github.com/AndersD76/portalpili-producao-sub005/internal/config"
)

const userAgent = "Portal-Go/0.1.0"

// Message is a rendered notification.
type Message struct {
	Title    string
	Body     string
	Tags     []string
	Priority string
}

// Receipt describes the outcome of one delivery attempt.
type Receipt struct {
	Delivered         bool
	ProviderMessageID string
}

// Sender delivers one message to one recipient.
type Sender interface {
	Send(ctx context.Context, recipient string, msg Message) (Receipt, error)
}

// NewSender builds the sender selected by cfg.Provider. Unknown or disabled
// providers yield a noop sender.
func NewSender(cfg config.Notifications) Sender {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	switch cfg.Provider {
	case config.ProviderWebhook:
		if cfg.URL == "" {
			return NoopSender{}
		}
		return &WebhookSender{endpoint: cfg.URL, token: cfg.Token, client: client}
	case config.ProviderNtfy:
		if cfg.NtfyTopic == "" {
			return NoopSender{}
		}
		return &NtfySender{endpoint: cfg.NtfyTopic, token: cfg.Token, client: client}
	default:
		return NoopSender{}
	}
}

// NoopSender accepts every message without delivering it.
type NoopSender struct{}

func (NoopSender) Send(context.Context, string, Message) (Receipt, error) {
	return Receipt{}, nil
}
