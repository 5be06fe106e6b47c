package dispatch

import (
	"context"
	"sync"
)

// job is one queued delivery. A job with a non-nil barrier only signals.
type job struct {
	describe string
	run      func(ctx context.Context) error
	barrier  chan struct{}
}

// outbox delivers jobs for one channel in order on a single goroutine.
type outbox struct {
	name    string
	jobs    chan job
	done    chan struct{}
	onError func(describe string, err error)
	onDrop  func(describe string)

	mu     sync.RWMutex
	closed bool
}

func newOutbox(name string, size int, onError func(string, error), onDrop func(string)) *outbox {
	o := &outbox{
		name:    name,
		jobs:    make(chan job, size),
		done:    make(chan struct{}),
		onError: onError,
		onDrop:  onDrop,
	}
	go o.run()
	return o
}

func (o *outbox) run() {
	defer close(o.done)
	ctx := context.Background()
	for j := range o.jobs {
		if j.barrier != nil {
			close(j.barrier)
			continue
		}
		if err := j.run(ctx); err != nil {
			o.onError(j.describe, err)
		}
	}
}

// enqueue queues j without blocking. It reports false when j was dropped.
func (o *outbox) enqueue(j job) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		o.onDrop(j.describe)
		return false
	}
	select {
	case o.jobs <- j:
		return true
	default:
		o.onDrop(j.describe)
		return false
	}
}

// flush waits until every job queued before the call has been attempted.
func (o *outbox) flush(ctx context.Context) error {
	barrier := make(chan struct{})

	o.mu.RLock()
	if o.closed {
		o.mu.RUnlock()
		return nil
	}
	select {
	case o.jobs <- job{barrier: barrier}:
	case <-ctx.Done():
		o.mu.RUnlock()
		return ctx.Err()
	}
	o.mu.RUnlock()

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting jobs and waits for the queue to drain.
func (o *outbox) close() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.jobs)
	}
	o.mu.Unlock()
	<-o.done
}
