package history

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusAborted Status = "aborted"
)

// Run is one playback session.
type Run struct {
	ID              string     `json:"id"`
	RouteID         string     `json:"route_id"`
	RouteName       string     `json:"route_name"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	Status          Status     `json:"status"`
	MovesCompleted  int        `json:"moves_completed"`
	UserPauses      int        `json:"user_pauses"`
	DetectionPauses int        `json:"detection_pauses"`
}

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("history: run not found")

// DefaultListLimit bounds ListByRoute when no limit is given.
const DefaultListLimit = 50
