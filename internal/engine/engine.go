package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/pickroute/internal/route"
)

// DefaultTickInterval is the length of one countdown second.
const DefaultTickInterval = time.Second

// Engine runs route playback on a single event loop.
//
// Thread Safety: all exported methods are safe for concurrent use. State
// changes only take effect once Run is processing events.
type Engine struct {
	routes RouteSource
	gate   Gate
	logger Logger
	sched  scheduler
	tick   time.Duration

	queue   *requestQueue
	machine *machine
	running atomic.Bool
	done    chan struct{}

	snapMu sync.RWMutex
	snap   Snapshot

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithGate sets the detection gate.
func WithGate(g Gate) Option {
	return func(e *Engine) { e.gate = g }
}

// WithTickInterval overrides the length of a countdown second.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.tick = d
		}
	}
}

func withScheduler(s scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

// New creates an engine. Call Run to start processing.
func New(routes RouteSource, dispatcher Dispatcher, opts ...Option) *Engine {
	e := &Engine{
		routes: routes,
		logger: noopLogger{},
		sched:  wallClock{},
		tick:   DefaultTickInterval,
		queue:  newRequestQueue(),
		done:   make(chan struct{}),
		subs:   make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(e)
	}

	timers := newTimerSet(e.sched, e.tick, func(ev timerFired) {
		e.queue.enqueue(request{kind: reqTimer, timer: ev})
	})
	e.machine = newMachine(dispatcher, timers, e.logger, e.publish)
	e.snap = e.machine.snapshot()
	return e
}

// Run processes events until ctx is cancelled. On return any playback is
// stopped and the robot commanded to stop.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine: already running")
	}
	defer close(e.done)

	e.logger.Info("playback engine started", "tick", e.tick)
	for {
		if err := ctx.Err(); err != nil {
			e.shutdown()
			return nil
		}

		if r, ok := e.queue.tryDequeue(); ok {
			e.handle(r)
			continue
		}

		select {
		case <-ctx.Done():
			e.shutdown()
			return nil
		case <-e.queue.wait():
		}
	}
}

// Done is closed when Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) shutdown() {
	for _, r := range e.queue.close() {
		if r.resp != nil {
			r.resp <- ErrNotRunning
		}
	}
	if e.machine.state.State() != StateIdle {
		e.machine.stop()
	} else {
		e.machine.timers.cancel()
	}
	e.logger.Info("playback engine stopped")
}

func (e *Engine) handle(r request) {
	var err error
	switch r.kind {
	case reqPlay:
		e.machine.play(r.route)
	case reqContinue:
		err = e.continuePlayback()
	case reqResume:
		e.machine.resume()
	case reqPause:
		e.machine.pause()
	case reqStop:
		e.machine.stop()
	case reqDetection:
		e.machine.detection(r.detected)
	case reqTimer:
		e.machine.fired(r.timer)
	}
	if r.resp != nil {
		r.resp <- err
	}
}

// continuePlayback handles Play without a route.
func (e *Engine) continuePlayback() error {
	if e.machine.state.State() == StateIdle {
		return fmt.Errorf("%w: no route selected", ErrInvalidPlayTarget)
	}
	e.machine.resume()
	return nil
}

// Play starts routeID from its first move, discarding any current
// playback. An empty routeID continues a user-paused move instead.
//
// ErrInvalidPlayTarget is returned, with no state change, when the route
// does not exist, has no moves, or there is nothing to continue.
func (e *Engine) Play(ctx context.Context, routeID string) error {
	routeID = strings.TrimSpace(routeID)
	if routeID == "" {
		return e.submit(ctx, request{kind: reqContinue})
	}

	r, err := e.routes.GetRoute(ctx, routeID)
	if errors.Is(err, route.ErrNotFound) {
		return fmt.Errorf("%w: route %q not found", ErrInvalidPlayTarget, routeID)
	}
	if err != nil {
		return fmt.Errorf("loading route %s: %w", routeID, err)
	}
	if r.Len() == 0 {
		return fmt.Errorf("%w: route %q has no moves", ErrInvalidPlayTarget, routeID)
	}
	return e.submit(ctx, request{kind: reqPlay, route: r})
}

// Resume continues a user-paused move. It has no effect in other states.
func (e *Engine) Resume() { e.post(request{kind: reqResume}) }

// Pause pauses a running engine.
func (e *Engine) Pause() { e.post(request{kind: reqPause}) }

// Stop ends playback and commands the robot to stop.
func (e *Engine) Stop() { e.post(request{kind: reqStop}) }

// Detection reports the obstacle signal. It is a detection.Sink.
func (e *Engine) Detection(detected bool) {
	e.post(request{kind: reqDetection, detected: detected})
}

func (e *Engine) post(r request) {
	if !e.queue.enqueue(r) {
		e.logger.Debug("engine stopped, request dropped", "kind", r.kind)
	}
}

func (e *Engine) submit(ctx context.Context, r request) error {
	r.resp = make(chan error, 1)
	if !e.queue.enqueue(r) {
		return ErrNotRunning
	}
	select {
	case err := <-r.resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the latest display projection.
func (e *Engine) Snapshot() Snapshot {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	return e.snap
}

// Subscribe returns a channel receiving every event. Events are dropped
// for a subscriber whose buffer is full. The cancel function closes the
// channel.
func (e *Engine) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.subMu.Lock()
			delete(e.subs, id)
			e.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// publish runs on the event loop after every mutation.
func (e *Engine) publish(t EventType, snap Snapshot) {
	e.snapMu.Lock()
	e.snap = snap
	e.snapMu.Unlock()

	if e.gate != nil {
		e.gate.SetActive(snap.State == StateRunning || snap.State == StatePausedDetection)
	}

	ev := Event{Type: t, Snapshot: snap, At: e.sched.Now()}
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
