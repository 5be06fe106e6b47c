package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"

	backend "github.com/redis/go-redis/v9"
)

// RedisChannel is the Redis backend of the remote channel.
//
// The node lives in a hash named after the node. Every write is applied
// with HSET and then announced on "{node}:updates" so listeners see the
// same partial object an MQTT subscriber would.
type RedisChannel struct {
	rdb            *backend.Client
	node           string
	detectionField string
}

// NewRedisChannel creates a channel for node. detectionField is the hash
// field holding the current detection value.
func NewRedisChannel(rdb *backend.Client, node, detectionField string) *RedisChannel {
	return &RedisChannel{rdb: rdb, node: node, detectionField: detectionField}
}

// UpdatesChannel is the pub/sub channel carrying update payloads.
func (c *RedisChannel) UpdatesChannel() string { return c.node + ":updates" }

// DetectionChannel is the pub/sub channel carrying detection payloads.
func (c *RedisChannel) DetectionChannel() string { return c.node + ":detection" }

// Name implements Channel.
func (c *RedisChannel) Name() string { return "redis" }

// Write stores u in the node hash and publishes it.
func (c *RedisChannel) Write(ctx context.Context, u Update) error {
	if u.Empty() {
		return nil
	}
	payload, err := u.MarshalPayload()
	if err != nil {
		return fmt.Errorf("encoding update: %w", err)
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.HSet(ctx, c.node, u.Fields())
		pipe.Publish(ctx, c.UpdatesChannel(), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing node %s: %w", c.node, err)
	}
	return nil
}

// SubscribeDetection listens on the detection channel. The current value
// of the detection field, if any, is delivered first so a subscriber that
// arrives mid-obstacle still sees it.
func (c *RedisChannel) SubscribeDetection(ctx context.Context, handler DetectionHandler) (func() error, error) {
	ps := c.rdb.Subscribe(ctx, c.DetectionChannel())
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("subscribing to %s: %w", c.DetectionChannel(), err)
	}

	current, err := c.rdb.HGet(ctx, c.node, c.detectionField).Bytes()
	switch {
	case err == nil:
		handler(current)
	case errors.Is(err, backend.Nil):
	default:
		ps.Close() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("reading %s.%s: %w", c.node, c.detectionField, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range ps.Channel() {
			handler([]byte(msg.Payload))
		}
	}()

	var once sync.Once
	var closeErr error
	return func() error {
		once.Do(func() {
			closeErr = ps.Close()
			<-done
		})
		return closeErr
	}, nil
}
