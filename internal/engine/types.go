package engine

import (
	"context"
	"time"

	"github.com/nerrad567/pickroute/internal/route"
)

// State is the engine's playback mode.
type State string

const (
	StateIdle            State = "idle"
	StateRunning         State = "running"
	StatePausedUser      State = "paused_user"
	StatePausedDetection State = "paused_detection"
)

// AllStates returns every state.
func AllStates() []State {
	return []State{StateIdle, StateRunning, StatePausedUser, StatePausedDetection}
}

// PauseReason says why playback is paused.
type PauseReason string

const (
	PauseNone      PauseReason = "none"
	PauseUser      PauseReason = "user"
	PauseDetection PauseReason = "detection"
)

// ExecutionState is the engine's only mutable state.
//
// PauseReason is PauseNone exactly when IsPaused is false. When Route is
// set, MoveIndex is within its moves. RemainingSeconds is the authoritative
// time left in the current move.
type ExecutionState struct {
	Route            *route.Route
	MoveIndex        int
	RemainingSeconds int
	IsPaused         bool
	PauseReason      PauseReason
}

// State derives the playback mode.
func (s ExecutionState) State() State {
	switch {
	case s.Route == nil:
		return StateIdle
	case !s.IsPaused:
		return StateRunning
	case s.PauseReason == PauseDetection:
		return StatePausedDetection
	default:
		return StatePausedUser
	}
}

// Snapshot is the display projection of the engine.
type Snapshot struct {
	State            State       `json:"state"`
	RouteID          string      `json:"route_id,omitempty"`
	RouteName        string      `json:"route_name,omitempty"`
	MoveIndex        int         `json:"move_index"`
	MoveCount        int         `json:"move_count"`
	Move             *route.Move `json:"move,omitempty"`
	RemainingSeconds int         `json:"remaining_seconds"`
	IsPaused         bool        `json:"is_paused"`
	PauseReason      PauseReason `json:"pause_reason"`
	Status           string      `json:"status"`
}

// EventType names what changed.
type EventType string

const (
	EventStarted          EventType = "started"
	EventResumed          EventType = "resumed"
	EventPaused           EventType = "paused"
	EventDetectionPaused  EventType = "detection_paused"
	EventDetectionCleared EventType = "detection_cleared"
	EventTick             EventType = "tick"
	EventAdvanced         EventType = "advanced"
	EventStopped          EventType = "stopped"
	EventAborted          EventType = "aborted"
)

// Event is published after every mutation.
type Event struct {
	Type     EventType `json:"type"`
	Snapshot Snapshot  `json:"snapshot"`
	At       time.Time `json:"at"`
}

// Dispatcher issues robot commands. Implementations must return without
// waiting for delivery.
type Dispatcher interface {
	// Move issues an activated move that should run for seconds.
	Move(m route.Move, seconds int)
	// ActionDone clears the picking marker after an action move.
	ActionDone()
	// Halt stops the platform for a pause.
	Halt()
	// Stop stops the platform and ends playback.
	Stop()
}

// RouteSource looks up routes to play.
type RouteSource interface {
	GetRoute(ctx context.Context, id string) (*route.Route, error)
}

// Gate enables the detection feed. The engine sets it active while
// Running or Paused(Detection).
type Gate interface {
	SetActive(active bool)
}

// Logger is the logging interface used by the engine.
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
