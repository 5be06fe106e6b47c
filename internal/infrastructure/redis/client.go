package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/nerrad567/pickroute/internal/infrastructure/config"
)

const defaultPingTimeout = 5 * time.Second

// ErrConnectionFailed is returned when the initial ping fails.
var ErrConnectionFailed = errors.New("redis: connection failed")

// Client wraps a go-redis client.
type Client struct {
	rdb *backend.Client
}

// Connect dials cfg.Addr and verifies the server with PING.
func Connect(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := backend.NewClient(&backend.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return &Client{rdb: rdb}, nil
}

// NewFromClient wraps an existing go-redis client.
func NewFromClient(rdb *backend.Client) *Client {
	return &Client{rdb: rdb}
}

// Redis exposes the underlying go-redis client.
func (c *Client) Redis() *backend.Client {
	return c.rdb
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check: %w", err)
	}
	return nil
}

// Close closes the connection pool. Safe on nil.
func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
