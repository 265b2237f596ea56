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

const pagerDutyEventsURL = "https://events.pagerduty.com/v2/enqueue"

// PagerDutyDeliverer sends a PagerDuty Events API v2 alert, keyed by the
// notification method's address as the integration routing key. Supplemented
// from kiloeyes's notification method type enum (SPEC_FULL.md §12); the
// original has no PagerDuty integration of its own, so the event shape
// follows the teacher's webhook JSON-POST idiom, targeted at PagerDuty's
// documented endpoint instead of an arbitrary URL.
type PagerDutyDeliverer struct {
	client *http.Client
	url    string
}

// NewPagerDutyDeliverer builds a PagerDutyDeliverer posting to the standard
// Events API v2 endpoint.
func NewPagerDutyDeliverer() *PagerDutyDeliverer {
	return &PagerDutyDeliverer{client: &http.Client{Timeout: 10 * time.Second}, url: pagerDutyEventsURL}
}

type pagerDutyEvent struct {
	RoutingKey  string         `json:"routing_key"`
	EventAction string         `json:"event_action"`
	Payload     pagerDutyAlert `json:"payload"`
}

type pagerDutyAlert struct {
	Summary       string `json:"summary"`
	Source        string `json:"source"`
	Severity      string `json:"severity"`
	CustomDetails any    `json:"custom_details"`
}

// Deliver implements Deliverer.
func (p *PagerDutyDeliverer) Deliver(ctx context.Context, method model.NotificationMethod, event model.AlarmEvent) error {
	action := "trigger"
	if event.State == model.StateOK {
		action = "resolve"
	}

	body, err := json.Marshal(pagerDutyEvent{
		RoutingKey:  method.Address,
		EventAction: action,
		Payload: pagerDutyAlert{
			Summary:       event.Reason,
			Source:        event.AlarmDefinition.Name,
			Severity:      pagerDutySeverity(event.AlarmDefinition.Severity),
			CustomDetails: event,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal pagerduty event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

func pagerDutySeverity(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "critical"
	case model.SeverityHigh:
		return "error"
	case model.SeverityMedium:
		return "warning"
	default:
		return "info"
	}
}
