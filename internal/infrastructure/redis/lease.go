package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// ErrLeaseHeld is returned when another engine holds the controller lease.
var ErrLeaseHeld = errors.New("redis: controller lease held by another engine")

// ErrLeaseLost is reported when a renewal finds the lease gone or taken.
var ErrLeaseLost = errors.New("redis: controller lease lost")

// renewScript extends the TTL only while we still own the key.
var renewScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end
`)

// releaseScript deletes the key only while we still own it.
var releaseScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Lease is an exclusive, expiring claim on a key.
type Lease struct {
	client *backend.Client
	key    string
	token  string
	ttl    time.Duration

	mu       sync.Mutex
	renewing bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// ControllerKey returns the lease key for a robot node.
func ControllerKey(node string) string {
	return node + ":controller"
}

// AcquireLease claims key for ttl. It does not wait: if the key is already
// held, ErrLeaseHeld is returned.
func (c *Client) AcquireLease(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("redis: lease ttl must be positive, got %v", ttl)
	}

	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquiring lease %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLeaseHeld, key)
	}

	return &Lease{
		client: c.rdb,
		key:    key,
		token:  token,
		ttl:    ttl,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// Key returns the leased key.
func (l *Lease) Key() string { return l.key }

// Renew extends the lease by its TTL.
func (l *Lease) Renew(ctx context.Context) error {
	n, err := renewScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis: renewing lease %s: %w", l.key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrLeaseLost, l.key)
	}
	return nil
}

// KeepAlive renews the lease every ttl/3 until Release is called or ctx is
// cancelled. onLost is called once if a renewal fails; renewal then stops.
func (l *Lease) KeepAlive(ctx context.Context, onLost func(error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.renewing {
		return
	}
	l.renewing = true

	go func() {
		defer close(l.done)

		ticker := time.NewTicker(l.ttl / 3)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-l.stop:
				return
			case <-ticker.C:
				if err := l.Renew(ctx); err != nil {
					if onLost != nil {
						onLost(err)
					}
					return
				}
			}
		}
	}()
}

// Release stops renewal and deletes the key if it is still ours.
func (l *Lease) Release(ctx context.Context) error {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
	l.mu.Lock()
	renewing := l.renewing
	l.mu.Unlock()
	if renewing {
		<-l.done
	}

	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("redis: releasing lease %s: %w", l.key, err)
	}
	return nil
}
