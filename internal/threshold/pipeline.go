package threshold

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/wardenhq/warden/internal/bus"
	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/obsmetrics"
)

// DefaultPublishInterval is check_alarm_interval's default (spec.md §4.5).
const DefaultPublishInterval = 60 * time.Second

// MetricsConsumer drains the metrics topic and dispatches each record to
// every live Threshold Processor under the catalog's shared lock, per
// spec.md §4.5.
type MetricsConsumer struct {
	catalog  *Catalog
	consumer bus.Consumer
	metrics  *obsmetrics.Metrics
	cancel   context.CancelFunc
}

// NewMetricsConsumer builds a MetricsConsumer over catalog, draining c.
// metrics may be nil.
func NewMetricsConsumer(catalog *Catalog, c bus.Consumer, metrics *obsmetrics.Metrics) *MetricsConsumer {
	return &MetricsConsumer{catalog: catalog, consumer: c, metrics: metrics}
}

// Start begins draining the metrics topic in a background goroutine until
// ctx is cancelled or Stop is called.
func (m *MetricsConsumer) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	slog.Info("metrics consumer starting")

	go func() {
		for {
			if ctx.Err() != nil {
				slog.Info("metrics consumer stopped")
				return
			}
			msg, err := m.consumer.Receive(ctx)
			if err != nil {
				if ctx.Err() != nil {
					slog.Info("metrics consumer stopped")
					return
				}
				slog.Warn("metrics consumer: receive failed, will retry", "error", err)
				continue
			}
			if m.metrics != nil {
				m.metrics.BusReceivesTotal.WithLabelValues("metrics").Inc()
			}
			var env model.MetricEnvelope
			if err := json.Unmarshal(msg.Value, &env); err != nil {
				slog.Warn("metrics consumer: dropping invalid record", "error", err)
				continue
			}
			sample := env.Metric
			if err := sample.Validate(); err != nil {
				slog.Warn("metrics consumer: dropping invalid sample", "error", err)
				continue
			}
			m.catalog.Ingest(sample, time.Now())
		}
	}()
}

// Stop cancels the background drain goroutine.
func (m *MetricsConsumer) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	_ = m.consumer.Close()
}

// AlarmPublisher periodically asks every live Threshold Processor for
// produced alarm events and writes them to the alarms topic, per spec.md
// §4.5.
type AlarmPublisher struct {
	catalog  *Catalog
	producer bus.Producer
	interval time.Duration
	maxRetry int
	metrics  *obsmetrics.Metrics
	cancel   context.CancelFunc
}

// NewAlarmPublisher builds an AlarmPublisher publishing evaluate() output
// to producer every interval (use DefaultPublishInterval when the caller
// has no override). metrics may be nil.
func NewAlarmPublisher(catalog *Catalog, producer bus.Producer, interval time.Duration, maxRetry int, metrics *obsmetrics.Metrics) *AlarmPublisher {
	if interval <= 0 {
		interval = DefaultPublishInterval
	}
	return &AlarmPublisher{catalog: catalog, producer: producer, interval: interval, maxRetry: maxRetry, metrics: metrics}
}

// Start begins the periodic publish loop.
func (a *AlarmPublisher) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	slog.Info("alarm publisher starting", "interval", a.interval)

	go func() {
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("alarm publisher stopped")
				return
			case <-ticker.C:
				a.publish(ctx)
			}
		}
	}()
}

// Stop cancels the periodic publish loop.
func (a *AlarmPublisher) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *AlarmPublisher) publish(ctx context.Context) {
	events := a.catalog.Evaluate(time.Now())
	for _, ev := range events {
		if a.metrics != nil {
			a.metrics.AlarmTransitions.WithLabelValues(string(ev.State)).Inc()
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			slog.Error("alarm publisher: failed to encode event", "id", ev.ID, "error", err)
			continue
		}
		if err := a.sendWithRetry(ctx, payload); err != nil {
			slog.Error("alarm publisher: failed to send event", "id", ev.ID, "error", err)
		}
	}
}

func (a *AlarmPublisher) sendWithRetry(ctx context.Context, payload []byte) error {
	var lastErr error
	attempts := a.maxRetry
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if err := a.producer.Send(ctx, "alarms", payload); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return errors.Join(errRetriesExhausted, lastErr)
}

var errRetriesExhausted = errors.New("alarm publisher: retries exhausted")
