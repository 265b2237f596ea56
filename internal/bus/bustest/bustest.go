// Package bustest provides an in-memory bus.Producer/bus.Consumer pair for
// unit tests, standing in for a real transport (redisbus) without a live
// Redis instance.
package bustest

import (
	"context"
	"strconv"
	"sync"

	"github.com/wardenhq/warden/internal/bus"
)

// Bus is a single-process, slice-backed stand-in for a bus topic.
type Bus struct {
	mu      sync.Mutex
	seq     int
	queues  map[string][]bus.Message
	closed  bool
}

// New returns an empty in-memory bus.
func New() *Bus {
	return &Bus{queues: make(map[string][]bus.Message)}
}

// Producer returns a bus.Producer bound to this Bus.
func (b *Bus) Producer() bus.Producer { return &producer{b: b} }

// Consumer returns a bus.Consumer draining topic from this Bus.
func (b *Bus) Consumer(topic string) bus.Consumer { return &consumer{b: b, topic: topic} }

type producer struct{ b *Bus }

func (p *producer) Send(_ context.Context, topic string, value []byte) error {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	p.b.seq++
	p.b.queues[topic] = append(p.b.queues[topic], bus.Message{
		Topic: topic, Handle: strconv.Itoa(p.b.seq), Value: value,
	})
	return nil
}

func (p *producer) Close() error { return nil }

type consumer struct {
	b     *Bus
	topic string
}

// Receive returns the next queued message, or an error if none is queued.
// Unlike a real bus it never blocks — tests drive ticks explicitly.
func (c *consumer) Receive(_ context.Context) (bus.Message, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	q := c.b.queues[c.topic]
	if len(q) == 0 {
		return bus.Message{}, errEmpty
	}
	msg := q[0]
	c.b.queues[c.topic] = q[1:]
	return msg, nil
}

func (c *consumer) Commit(context.Context, bus.Message) error { return nil }
func (c *consumer) Close() error                              { return nil }

var errEmpty = emptyErr{}

type emptyErr struct{}

func (emptyErr) Error() string { return "bustest: no message queued" }
