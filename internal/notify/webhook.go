package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wardenhq/warden/internal/model"
)

// WebhookDeliverer POSTs the alarm event as JSON to the notification
// method's address, adapted directly from the teacher's
// alerting/notifications.go postWebhook.
type WebhookDeliverer struct {
	client *http.Client
}

// NewWebhookDeliverer builds a WebhookDeliverer with a bounded client
// timeout, matching the teacher's 10s http.Client.
func NewWebhookDeliverer() *WebhookDeliverer {
	return &WebhookDeliverer{client: &http.Client{Timeout: 10 * time.Second}}
}

// Deliver implements Deliverer.
func (w *WebhookDeliverer) Deliver(ctx context.Context, method model.NotificationMethod, event model.AlarmEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal alarm event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, method.Address, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}
