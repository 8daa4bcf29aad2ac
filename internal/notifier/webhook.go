package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pfrederiksen/sfoweb/internal/appointment"
)

// ErrMissingWebhookURL is returned when no webhook URL is configured
var ErrMissingWebhookURL = errors.New("missing webhook URL")

// DefaultWebhookDelay spaces consecutive posts
const DefaultWebhookDelay = 2 * time.Second

// WebhookNotifier posts each new appointment as JSON to a URL
type WebhookNotifier struct {
	url    string
	client *http.Client
	delay  time.Duration
}

// WebhookPayload is the JSON body posted for one appointment
type WebhookPayload struct {
	Account     string                   `json:"account"`
	Message     string                   `json:"message"`
	Appointment *appointment.Appointment `json:"appointment"`
}

// NewWebhookNotifier creates a webhook notifier. A nil client uses a client
// with a 10 second timeout.
func NewWebhookNotifier(url string, client *http.Client) (*WebhookNotifier, error) {
	if url == "" {
		return nil, ErrMissingWebhookURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookNotifier{url: url, client: client, delay: DefaultWebhookDelay}, nil
}

// SetDelay changes the pause between consecutive posts
func (n *WebhookNotifier) SetDelay(d time.Duration) {
	n.delay = d
}

// Notify posts one request per appointment
func (n *WebhookNotifier) Notify(ctx context.Context, account string, appointments []*appointment.Appointment) error {
	for i, a := range appointments {
		if err := n.post(ctx, WebhookPayload{
			Account:     account,
			Message:     FormatMessage(account, a),
			Appointment: a,
		}); err != nil {
			return fmt.Errorf("posting appointment %s: %w", a.ID, err)
		}

		if i < len(appointments)-1 && n.delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(n.delay):
			}
		}
	}

	return nil
}

func (n *WebhookNotifier) post(ctx context.Context, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}
