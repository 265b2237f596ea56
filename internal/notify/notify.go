// Package notify implements the Notification Consumer (spec.md §4.5): it
// drains the alarms topic, resolves action ids to delivery targets via the
// store, and dispatches through a method-type-specific Deliverer.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/wardenhq/warden/internal/bus"
	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/obsmetrics"
	"github.com/wardenhq/warden/internal/store"
)

// Deliverer sends one alarm event to one resolved notification method.
// Errors are logged by the consumer and never propagate — notification
// delivery is best-effort per spec.md §4.5/§7.
type Deliverer interface {
	Deliver(ctx context.Context, method model.NotificationMethod, event model.AlarmEvent) error
}

// Consumer drains the alarms topic and dispatches each event's configured
// actions through the registered deliverers.
type Consumer struct {
	consumer   bus.Consumer
	store      store.Client
	deliverers map[model.NotificationType]Deliverer
	metrics    *obsmetrics.Metrics
	cancel     context.CancelFunc
}

// NewConsumer builds a notification Consumer. deliverers maps each
// supported NotificationType to the Deliverer that handles it. metrics may
// be nil.
func NewConsumer(c bus.Consumer, client store.Client, deliverers map[model.NotificationType]Deliverer, metrics *obsmetrics.Metrics) *Consumer {
	return &Consumer{consumer: c, store: client, deliverers: deliverers, metrics: metrics}
}

// Start begins draining the alarms topic in a background goroutine.
func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	slog.Info("notification consumer starting")

	go func() {
		for {
			if ctx.Err() != nil {
				slog.Info("notification consumer stopped")
				return
			}
			msg, err := c.consumer.Receive(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("notification consumer: receive failed, will retry", "error", err)
				continue
			}
			if c.metrics != nil {
				c.metrics.BusReceivesTotal.WithLabelValues("alarms").Inc()
			}
			c.dispatch(ctx, msg.Value)
		}
	}()
}

// Stop cancels the background drain goroutine.
func (c *Consumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	_ = c.consumer.Close()
}

func (c *Consumer) dispatch(ctx context.Context, raw []byte) {
	var event model.AlarmEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		slog.Warn("notification consumer: dropping invalid record", "error", err)
		return
	}

	for _, actionID := range event.AlarmDefinition.ActionsFor(event.State) {
		method, err := c.store.GetNotificationMethod(ctx, actionID)
		if err != nil {
			slog.Error("notification consumer: failed to resolve action", "action_id", actionID, "error", err)
			continue
		}
		deliverer, ok := c.deliverers[method.Type]
		if !ok {
			slog.Error("notification consumer: no deliverer for type", "type", method.Type, "action_id", actionID)
			continue
		}
		if err := deliverer.Deliver(ctx, method, event); err != nil {
			slog.Error("notification consumer: delivery failed", "action_id", actionID, "type", method.Type, "error", err)
			continue
		}
		slog.Info("notification consumer: delivered", "action_id", actionID, "type", method.Type, "state", event.State)
	}
}
