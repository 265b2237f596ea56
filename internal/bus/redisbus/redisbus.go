// Package redisbus implements the bus.Producer/bus.Consumer contract over
// Redis Streams (XADD/XREADGROUP/XACK/XGROUP CREATE), grounded on the pack's
// go-redis/v9 client-construction idiom
// (mercierj-homeport/internal/app/queues/service.go: redis.NewClient +
// Options{Addr,Password,DB} + a Ping connectivity check at construction).
// A Stream's consumer group maps naturally onto spec.md §6's
// group/auto_commit/ack_time bus knobs: XREADGROUP delivers at-least-once
// per consumer group, and XACK is the commit.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wardenhq/warden/internal/bus"
)

// Config is the Redis connection shape, named after the teacher's queue
// service Config (Addr/Password/DB), plus the bus knobs from spec.md §6.
type Config struct {
	Addr     string
	Password string
	DB       int
	bus.Config
}

// Producer sends records onto a Redis Stream named after the topic.
type Producer struct {
	client *redis.Client
	cfg    Config
}

// NewProducer dials Redis and verifies connectivity with a bounded Ping,
// matching the teacher's NewService construction pattern.
func NewProducer(cfg Config) (*Producer, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisbus: failed to connect to redis: %w", err)
	}
	return &Producer{client: client, cfg: cfg}, nil
}

// Send appends value onto the topic's stream. When cfg.Compact is false and
// value is a JSON array, each element is fanned out as its own stream entry
// (spec.md §6 "compact" send-mode knob).
func (p *Producer) Send(ctx context.Context, topic string, value []byte) error {
	payloads := [][]byte{value}
	if !p.cfg.Compact {
		var list []json.RawMessage
		if err := json.Unmarshal(value, &list); err == nil {
			payloads = make([][]byte, len(list))
			for i, e := range list {
				payloads[i] = e
			}
		}
	}

	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetry; attempt++ {
		lastErr = nil
		for _, payload := range payloads {
			if p.cfg.DropData {
				continue
			}
			args := &redis.XAddArgs{
				Stream: streamKey(topic),
				Values: map[string]any{"data": payload},
			}
			ackCtx, cancel := context.WithTimeout(ctx, ackTimeout(p.cfg.AckTime))
			_, err := p.client.XAdd(ackCtx, args).Result()
			cancel()
			if err != nil {
				lastErr = err
				break
			}
		}
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("redisbus: send to topic %q failed after %d attempts: %w", topic, p.cfg.MaxRetry+1, lastErr)
}

// Close releases the underlying Redis connection.
func (p *Producer) Close() error { return p.client.Close() }

// Consumer drains a topic's stream under a consumer group.
type Consumer struct {
	client   *redis.Client
	cfg      Config
	topic    string
	consumer string
}

// NewConsumer dials Redis, verifies connectivity, and ensures the
// consumer-group stream exists (XGROUP CREATE MKSTREAM), matching spec.md
// §6's `group` knob.
func NewConsumer(cfg Config, topic, consumerName string) (*Consumer, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisbus: failed to connect to redis: %w", err)
	}

	err := client.XGroupCreateMkStream(ctx, streamKey(topic), cfg.Group, "0").Err()
	if err != nil && !isBusyGroupErr(err) {
		return nil, fmt.Errorf("redisbus: failed to create consumer group %q on topic %q: %w", cfg.Group, topic, err)
	}

	return &Consumer{client: client, cfg: cfg, topic: topic, consumer: consumerName}, nil
}

func isBusyGroupErr(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}

// Receive blocks until a record is available on the topic or ctx is
// cancelled/the consumer is closed.
func (c *Consumer) Receive(ctx context.Context) (bus.Message, error) {
	for {
		res, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.consumer,
			Streams:  []string{streamKey(c.topic), ">"},
			Count:    1,
			Block:    time.Duration(waitTime(c.cfg.WaitTime)) * time.Second,
		}).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return bus.Message{}, ctx.Err()
			}
			return bus.Message{}, fmt.Errorf("redisbus: receive from topic %q failed: %w", c.topic, err)
		}
		for _, stream := range res {
			for _, entry := range stream.Messages {
				raw, _ := entry.Values["data"].(string)
				msg := bus.Message{Topic: c.topic, Handle: entry.ID, Value: []byte(raw)}
				if c.cfg.AutoCommit {
					_ = c.Commit(ctx, msg)
				}
				return msg, nil
			}
		}
	}
}

// Commit acknowledges msg via XACK.
func (c *Consumer) Commit(ctx context.Context, msg bus.Message) error {
	return c.client.XAck(ctx, streamKey(c.topic), c.cfg.Group, msg.Handle).Err()
}

// Close releases the underlying Redis connection.
func (c *Consumer) Close() error { return c.client.Close() }

func streamKey(topic string) string { return "warden:" + topic }

func ackTimeout(seconds int) time.Duration {
	if seconds <= 0 {
		seconds = 10
	}
	return time.Duration(seconds) * time.Second
}

func waitTime(seconds int) int64 {
	if seconds <= 0 {
		return 5
	}
	return int64(seconds)
}
