package httpapi

import (
	"context"
	"log/slog"

	"github.com/wardenhq/warden/internal/bus"
	"github.com/wardenhq/warden/internal/obsmetrics"
)

// AlarmStreamer drains the alarms bus topic and rebroadcasts every record to
// an AlarmHub's subscribed WebSocket clients, so GET /v2.0/alarms/stream
// serves the same events the Alarm Publisher sends to the alarms topic.
// Shaped after threshold.MetricsConsumer's drain loop.
type AlarmStreamer struct {
	hub      *AlarmHub
	consumer bus.Consumer
	metrics  *obsmetrics.Metrics
	cancel   context.CancelFunc
}

// NewAlarmStreamer builds an AlarmStreamer broadcasting records drained from
// c into hub. metrics may be nil.
func NewAlarmStreamer(c bus.Consumer, hub *AlarmHub, metrics *obsmetrics.Metrics) *AlarmStreamer {
	return &AlarmStreamer{hub: hub, consumer: c, metrics: metrics}
}

// Start begins draining the alarms topic in a background goroutine until ctx
// is cancelled or Stop is called.
func (s *AlarmStreamer) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	slog.Info("alarm streamer starting")

	go func() {
		for {
			if ctx.Err() != nil {
				slog.Info("alarm streamer stopped")
				return
			}
			msg, err := s.consumer.Receive(ctx)
			if err != nil {
				if ctx.Err() != nil {
					slog.Info("alarm streamer stopped")
					return
				}
				slog.Warn("alarm streamer: receive failed, will retry", "error", err)
				continue
			}
			if s.metrics != nil {
				s.metrics.BusReceivesTotal.WithLabelValues("alarms").Inc()
			}
			s.hub.Broadcast(msg.Value)
		}
	}()
}

// Stop cancels the background drain goroutine.
func (s *AlarmStreamer) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	_ = s.consumer.Close()
}
