// Package bus defines the topic-partitioned, at-least-once message bus
// contract described in spec.md §6 ("Bus contract"). Concrete transports
// (internal/bus/redisbus) implement Producer and Consumer against it.
package bus

import "context"

// Message is one bus record: a topic, an opaque delivery handle usable for
// Commit, and the raw payload bytes.
type Message struct {
	Topic   string
	Handle  string // transport-specific delivery id, e.g. a Redis Stream entry id
	Value   []byte
}

// Config collects the consumer/producer knobs spec.md §6 enumerates.
type Config struct {
	URI         string
	Group       string
	WaitTime    int  // reconnect back-off, seconds
	AckTime     int  // send ack timeout, seconds
	MaxRetry    int
	AutoCommit  bool
	Async       bool
	Compact     bool // true: send body verbatim; false: JSON-parse and fan out list entries
	Partitions  []int
	DropData    bool // test mode: accept sends, discard
}

// DefaultConfig mirrors the original's documented defaults.
func DefaultConfig() Config {
	return Config{
		WaitTime:   5,
		AckTime:    10,
		MaxRetry:   3,
		AutoCommit: true,
	}
}

// Producer sends records to a topic, blocking on the configured ack policy
// up to AckTime.
type Producer interface {
	Send(ctx context.Context, topic string, value []byte) error
	Close() error
}

// Consumer drains a topic. Receive blocks until a record is available or
// the consumer is closed. Commit acknowledges a message that was
// successfully processed; when AutoCommit is configured, Receive already
// acknowledges each message before returning it.
type Consumer interface {
	Receive(ctx context.Context) (Message, error)
	Commit(ctx context.Context, msg Message) error
	Close() error
}
