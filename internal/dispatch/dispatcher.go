package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/pickroute/internal/remote"
	"github.com/nerrad567/pickroute/internal/route"
)

const defaultQueueSize = 64

// Channel names used in logs and metrics.
const (
	ChannelRemote = "remote"
	ChannelSerial = "serial"
)

// Remote is the remote channel leg.
type Remote interface {
	Write(ctx context.Context, u remote.Update) error
}

// Serial is the serial link leg.
type Serial interface {
	Send(cmd string) error
}

// Observer is told about every failed or dropped delivery.
type Observer interface {
	DispatchFailure(channel string)
}

// Logger is the logging interface used by the Dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Dispatcher queues robot commands for the remote channel and the serial
// link. All command methods return immediately.
type Dispatcher struct {
	remote   *outbox
	serial   *outbox
	remoteCh Remote
	serialCh Serial

	now      func() time.Time
	logger   Logger
	observer Observer
	timeout  time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option { return func(d *Dispatcher) { d.now = now } }

// WithLogger sets the logger.
func WithLogger(l Logger) Option { return func(d *Dispatcher) { d.logger = l } }

// WithObserver sets the failure observer.
func WithObserver(o Observer) Option { return func(d *Dispatcher) { d.observer = o } }

// WithWriteTimeout bounds each remote write.
func WithWriteTimeout(t time.Duration) Option { return func(d *Dispatcher) { d.timeout = t } }

// New starts a dispatcher. serial may be nil when the link is disabled.
// queueSize bounds each channel's backlog; commands beyond it are dropped.
func New(remoteCh Remote, serialCh Serial, queueSize int, opts ...Option) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	d := &Dispatcher{
		remoteCh: remoteCh,
		serialCh: serialCh,
		now:      time.Now,
		logger:   noopLogger{},
		timeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.remote = newOutbox(ChannelRemote, queueSize, d.failed(ChannelRemote), d.dropped(ChannelRemote))
	if serialCh != nil {
		d.serial = newOutbox(ChannelSerial, queueSize, d.failed(ChannelSerial), d.dropped(ChannelSerial))
	}
	return d
}

func (d *Dispatcher) failed(channel string) func(string, error) {
	return func(describe string, err error) {
		d.logger.Warn("robot command failed", "channel", channel, "command", describe, "error", err)
		if d.observer != nil {
			d.observer.DispatchFailure(channel)
		}
	}
}

func (d *Dispatcher) dropped(channel string) func(string) {
	return func(describe string) {
		d.logger.Warn("robot command dropped, queue full or closed", "channel", channel, "command", describe)
		if d.observer != nil {
			d.observer.DispatchFailure(channel)
		}
	}
}

// Move issues an activated move that should run for seconds. The serial
// leg is queued after the remote write so the remote channel always
// records the move as issued first.
func (d *Dispatcher) Move(m route.Move, seconds int) {
	p, ok := movePlan(m, seconds, d.now())
	if !ok {
		d.logger.Warn("move has no command code, not dispatched", "move", m.String())
		return
	}
	d.send(p)
}

// ActionDone clears the picking marker after a pick/place completes.
func (d *Dispatcher) ActionDone() {
	d.send(actionDonePlan(d.now()))
}

// Halt stops the platform for a pause.
func (d *Dispatcher) Halt() {
	d.send(haltPlan(d.now()))
}

// Stop stops the platform, zeroes the duration and clears the picking marker.
func (d *Dispatcher) Stop() {
	d.send(stopPlan(d.now()))
}

func (d *Dispatcher) send(p plan) {
	update := p.update
	if !update.Empty() {
		d.remote.enqueue(job{
			describe: describeUpdate(update),
			run: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, d.timeout)
				defer cancel()
				return d.remoteCh.Write(ctx, update)
			},
		})
	}

	if d.serial == nil {
		return
	}
	for _, cmd := range p.serial {
		d.serial.enqueue(job{
			describe: cmd,
			run: func(context.Context) error {
				return d.serialCh.Send(cmd)
			},
		})
	}
}

// Flush waits until every command queued so far has been attempted on
// both channels.
func (d *Dispatcher) Flush(ctx context.Context) error {
	var errs []error
	if err := d.remote.flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flushing %s: %w", ChannelRemote, err))
	}
	if d.serial != nil {
		if err := d.serial.flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flushing %s: %w", ChannelSerial, err))
		}
	}
	return errors.Join(errs...)
}

// Close drains both queues and stops the workers. Commands issued after
// Close are dropped.
func (d *Dispatcher) Close() {
	d.remote.close()
	if d.serial != nil {
		d.serial.close()
	}
}

func describeUpdate(u remote.Update) string {
	var b strings.Builder
	if u.Movements != "" {
		fmt.Fprintf(&b, "Movements=%s ", u.Movements)
	}
	if u.Duration != nil {
		fmt.Fprintf(&b, "duration=%d ", *u.Duration)
	}
	if u.Picking != "" {
		fmt.Fprintf(&b, "picking=%s ", u.Picking)
	}
	return strings.TrimSpace(b.String())
}
