package detection

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/pickroute/internal/remote"
)

const defaultRetryInterval = 2 * time.Second

// Source delivers raw detection payloads. remote.Channel implements it.
type Source interface {
	SubscribeDetection(ctx context.Context, handler remote.DetectionHandler) (cancel func() error, err error)
}

// Sink receives normalised readings. The engine's Detection method is the
// production sink; it must not block.
type Sink func(detected bool)

// Observer is notified of every parsed payload (metrics).
type Observer interface {
	DetectionPayload(result Result)
}

// Logger is the logging interface used by the Monitor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Monitor gates the detection subscription and forwards readings.
type Monitor struct {
	source   Source
	field    string
	sink     Sink
	logger   Logger
	observer Observer
	retry    time.Duration

	mu     sync.Mutex
	want   bool
	active bool // subscription established and forwarding
	signal chan struct{}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger.
func WithLogger(l Logger) Option { return func(m *Monitor) { m.logger = l } }

// WithObserver sets the payload observer.
func WithObserver(o Observer) Option { return func(m *Monitor) { m.observer = o } }

// WithRetryInterval sets how often a failed subscribe is retried.
func WithRetryInterval(d time.Duration) Option { return func(m *Monitor) { m.retry = d } }

// NewMonitor creates an inactive monitor. field names the node field
// carrying the detection value.
func NewMonitor(source Source, field string, sink Sink, opts ...Option) *Monitor {
	m := &Monitor{
		source: source,
		field:  field,
		sink:   sink,
		logger: noopLogger{},
		retry:  defaultRetryInterval,
		signal: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetActive asks for the subscription to be held (true) or dropped
// (false). It never blocks; Run applies the change.
func (m *Monitor) SetActive(active bool) {
	m.mu.Lock()
	changed := m.want != active
	m.want = active
	m.mu.Unlock()

	if !changed {
		return
	}
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// Active reports whether readings are currently being forwarded.
func (m *Monitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Run reconciles the subscription until ctx is cancelled. The subscription
// is dropped on return.
func (m *Monitor) Run(ctx context.Context) error {
	var cancel func() error

	drop := func() {
		m.mu.Lock()
		m.active = false
		m.mu.Unlock()
		if cancel != nil {
			if err := cancel(); err != nil {
				m.logger.Warn("detection unsubscribe failed", "error", err)
			}
			cancel = nil
			m.logger.Debug("detection subscription dropped")
		}
	}
	defer drop()

	retry := time.NewTicker(m.retry)
	defer retry.Stop()

	for {
		m.mu.Lock()
		want := m.want
		m.mu.Unlock()

		switch {
		case want && cancel == nil:
			// Mark active before subscribing: a source may deliver the
			// current value synchronously from SubscribeDetection.
			m.mu.Lock()
			m.active = true
			m.mu.Unlock()

			c, err := m.source.SubscribeDetection(ctx, m.handle)
			if err != nil {
				m.mu.Lock()
				m.active = false
				m.mu.Unlock()
				m.logger.Warn("detection subscribe failed, will retry", "error", err, "retry", m.retry)
			} else {
				cancel = c
				m.logger.Debug("detection subscription established")
			}
		case !want && cancel != nil:
			drop()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.signal:
		case <-retry.C:
		}
	}
}

// handle parses one payload and forwards it while active.
func (m *Monitor) handle(payload []byte) {
	m.mu.Lock()
	active := m.active && m.want
	m.mu.Unlock()
	if !active {
		return
	}

	result, err := Parse(payload, m.field)
	if m.observer != nil {
		m.observer.DetectionPayload(result)
	}
	if result == Malformed {
		m.logger.Warn("malformed detection payload treated as clear",
			"bytes", len(payload), "error", err)
	}
	m.sink(result == Detected)
}
