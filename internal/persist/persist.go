// Package persist implements the Persister described in spec.md §4.5: a
// bus-to-store sink with an optional per-record transform, writing into the
// time-sharded index named by the configured index strategy.
package persist

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wardenhq/warden/internal/bus"
	"github.com/wardenhq/warden/internal/model"
	"github.com/wardenhq/warden/internal/obsmetrics"
	"github.com/wardenhq/warden/internal/store"
)

// Transform mutates a raw record before it is written to the store. The
// metrics persister's transform fills a missing timestamp and attaches
// dimensions_hash; the alarms persister passes records through unchanged.
type Transform func(raw []byte) ([]byte, string, error)

// Persister drains one topic and bulk-writes each record into the store
// under docType, routed to the index named by strategy evaluated at write
// time (so indices roll over without restart).
type Persister struct {
	consumer  bus.Consumer
	store     store.Client
	docType   string
	transform Transform
	strategy  store.Strategy
	metrics   *obsmetrics.Metrics
	cancel    context.CancelFunc
}

// New builds a Persister. metrics may be nil.
func New(consumer bus.Consumer, client store.Client, docType string, strategy store.Strategy, transform Transform, metrics *obsmetrics.Metrics) *Persister {
	return &Persister{consumer: consumer, store: client, docType: docType, strategy: strategy, transform: transform, metrics: metrics}
}

// MetricsTransform unwraps the metrics topic's envelope (spec.md §6; see
// model.MetricEnvelope), fills a missing timestamp with wall-clock now, and
// attaches the dimensions_hash derived field, per spec.md §4.5.
func MetricsTransform(raw []byte) ([]byte, string, error) {
	var env model.MetricEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, "", err
	}
	s := env.Metric
	if err := s.Validate(); err != nil {
		return nil, "", err
	}
	if s.Timestamp == 0 {
		s.Timestamp = float64(time.Now().Unix())
	}
	s.ApplyDimensionsHash()
	out, err := json.Marshal(s)
	if err != nil {
		return nil, "", err
	}
	return out, uuid.NewString(), nil
}

// AlarmsTransform is the alarms persister's pass-through transform: the
// record is written unchanged, keyed by the alarm event's own id.
func AlarmsTransform(raw []byte) ([]byte, string, error) {
	var ev model.AlarmEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, "", err
	}
	id := ev.ID
	if id == "" {
		id = uuid.NewString()
	}
	return raw, id, nil
}

// Start begins draining the configured topic in a background goroutine.
func (p *Persister) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	slog.Info("persister starting", "doc_type", p.docType)

	go func() {
		for {
			if ctx.Err() != nil {
				slog.Info("persister stopped", "doc_type", p.docType)
				return
			}
			msg, err := p.consumer.Receive(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("persister: receive failed, will retry", "doc_type", p.docType, "error", err)
				continue
			}
			if p.metrics != nil {
				p.metrics.BusReceivesTotal.WithLabelValues(p.docType).Inc()
			}
			p.write(ctx, msg.Value)
		}
	}()
}

func (p *Persister) write(ctx context.Context, raw []byte) {
	doc, id, err := p.transform(raw)
	if err != nil {
		slog.Warn("persister: dropping unparseable record", "doc_type", p.docType, "error", err)
		return
	}
	index := p.strategy.IndexName(time.Now())
	var payload any
	if err := json.Unmarshal(doc, &payload); err != nil {
		slog.Warn("persister: dropping undecodable record", "doc_type", p.docType, "error", err)
		return
	}
	if err := p.store.Upsert(ctx, index, p.docType, id, payload); err != nil {
		if p.metrics != nil {
			p.metrics.StoreWriteErrors.WithLabelValues(p.docType).Inc()
		}
		slog.Error("persister: store write failed", "doc_type", p.docType, "index", index, "error", err)
	}
}

// Stop cancels the background drain goroutine.
func (p *Persister) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	_ = p.consumer.Close()
}
