package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/pickroute/internal/engine"
	"github.com/nerrad567/pickroute/internal/infrastructure/influxdb"
)

// Telemetry receives playback points. *influxdb.Client implements it.
type Telemetry interface {
	WritePlaybackEvent(p influxdb.PlaybackPoint)
}

// Logger is the logging interface used by the Recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Recorder turns engine events into run rows.
type Recorder struct {
	repo      Repository
	telemetry Telemetry
	logger    Logger

	current *Run
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithTelemetry mirrors transitions to t.
func WithTelemetry(t Telemetry) RecorderOption {
	return func(r *Recorder) { r.telemetry = t }
}

// WithLogger sets the logger.
func WithLogger(l Logger) RecorderOption {
	return func(r *Recorder) { r.logger = l }
}

// NewRecorder creates a recorder writing to repo.
func NewRecorder(repo Repository, opts ...RecorderOption) *Recorder {
	r := &Recorder{repo: repo, logger: noopLogger{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run consumes events until the channel is closed. A run still open at
// that point is marked aborted.
func (r *Recorder) Run(ctx context.Context, events <-chan engine.Event) {
	for ev := range events {
		r.Handle(ctx, ev)
	}
	if r.current != nil {
		r.finish(ctx, StatusAborted, time.Now())
	}
}

// Handle applies one event. Storage failures are logged and do not stop
// recording.
func (r *Recorder) Handle(ctx context.Context, ev engine.Event) {
	if ev.Type == engine.EventTick {
		return
	}
	r.mirror(ev)

	switch ev.Type {
	case engine.EventStarted:
		if r.current != nil {
			r.finish(ctx, StatusStopped, ev.At)
		}
		r.start(ctx, ev)
		return
	case engine.EventStopped:
		r.finish(ctx, StatusStopped, ev.At)
		return
	case engine.EventAborted:
		r.finish(ctx, StatusAborted, ev.At)
		return
	}

	if r.current == nil {
		return
	}
	switch ev.Type {
	case engine.EventAdvanced:
		r.current.MovesCompleted++
	case engine.EventPaused:
		r.current.UserPauses++
	case engine.EventDetectionPaused:
		r.current.DetectionPauses++
	default:
		return
	}
	r.save(ctx)
}

// Current returns a copy of the open run, if any.
func (r *Recorder) Current() *Run {
	if r.current == nil {
		return nil
	}
	cp := *r.current
	return &cp
}

func (r *Recorder) start(ctx context.Context, ev engine.Event) {
	run := &Run{
		ID:        uuid.NewString(),
		RouteID:   ev.Snapshot.RouteID,
		RouteName: ev.Snapshot.RouteName,
		StartedAt: ev.At,
		Status:    StatusRunning,
	}
	if err := r.repo.Create(ctx, run); err != nil {
		r.logger.Warn("recording run start failed", "route_id", run.RouteID, "error", err)
	}
	r.current = run
}

func (r *Recorder) finish(ctx context.Context, status Status, at time.Time) {
	if r.current == nil {
		return
	}
	r.current.Status = status
	r.current.EndedAt = &at
	r.save(ctx)
	r.logger.Debug("run finished", "run_id", r.current.ID, "status", status, "moves_completed", r.current.MovesCompleted)
	r.current = nil
}

func (r *Recorder) save(ctx context.Context) {
	if err := r.repo.Update(ctx, r.current); err != nil {
		r.logger.Warn("recording run failed", "run_id", r.current.ID, "error", err)
	}
}

func (r *Recorder) mirror(ev engine.Event) {
	if r.telemetry == nil {
		return
	}
	r.telemetry.WritePlaybackEvent(influxdb.PlaybackPoint{
		RouteID:          ev.Snapshot.RouteID,
		Event:            string(ev.Type),
		State:            string(ev.Snapshot.State),
		MoveIndex:        ev.Snapshot.MoveIndex,
		RemainingSeconds: ev.Snapshot.RemainingSeconds,
		At:               ev.At,
	})
}
