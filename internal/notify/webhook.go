package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPWebhookDispatcher posts event payloads to a single configured
// endpoint. An empty URL disables dispatch entirely.
type HTTPWebhookDispatcher struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewHTTPWebhookDispatcher builds the dispatcher.
func NewHTTPWebhookDispatcher(url string, timeout time.Duration, logger *zap.Logger) *HTTPWebhookDispatcher {
	return &HTTPWebhookDispatcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type webhookEnvelope struct {
	Event  string    `json:"event"`
	SentAt time.Time `json:"sent_at"`
	Data   any       `json:"data"`
}

// Trigger posts the event. Failures are returned for logging only; the
// caller never rolls anything back on a delivery error.
func (d *HTTPWebhookDispatcher) Trigger(ctx context.Context, eventName string, payload any) error {
	if d.url == "" {
		return nil
	}
	body, err := json.Marshal(webhookEnvelope{Event: eventName, SentAt: time.Now().UTC(), Data: payload})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook %s: %w", eventName, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s rejected with status %d", eventName, resp.StatusCode)
	}
	return nil
}
