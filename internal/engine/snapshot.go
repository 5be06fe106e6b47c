package engine

import (
	"fmt"

	"github.com/nerrad567/pickroute/internal/route"
)

const (
	statusReady       = "Ready to Execute"
	statusStopped     = "Stopped"
	statusPausedUser  = "Paused by user"
	statusPicking     = "Picking..."
	statusPlacing     = "Placing..."
	statusInvalidMove = "Stopped: invalid move"
)

func moveLabel(m route.Move) string {
	if !m.IsAction() {
		return string(m.Direction)
	}
	switch m.Action {
	case route.ActionPick:
		return "Pick"
	case route.ActionPlace:
		return "Place"
	default:
		return string(m.Action)
	}
}

// freshStatus describes a move activated at its full duration.
func freshStatus(m route.Move) string {
	if m.IsAction() {
		if m.Action == route.ActionPlace {
			return statusPlacing
		}
		return statusPicking
	}
	return "Moving: " + string(m.Direction)
}

// continueStatus describes a move picked up part way through.
func continueStatus(m route.Move, remaining int) string {
	return fmt.Sprintf("Continuing: %s (%ds remaining)", moveLabel(m), remaining)
}

func detectionStatus(remaining int) string {
	return fmt.Sprintf("DUST DETECTED - Paused (%ds remaining)", remaining)
}

// project derives the display snapshot from s.
func project(s ExecutionState, status string) Snapshot {
	snap := Snapshot{
		State:            s.State(),
		MoveIndex:        s.MoveIndex,
		RemainingSeconds: s.RemainingSeconds,
		IsPaused:         s.IsPaused,
		PauseReason:      s.PauseReason,
		Status:           status,
	}
	if s.Route == nil {
		return snap
	}
	snap.RouteID = s.Route.ID
	snap.RouteName = s.Route.Name
	snap.MoveCount = s.Route.Len()
	if s.MoveIndex >= 0 && s.MoveIndex < s.Route.Len() {
		mv := s.Route.Moves[s.MoveIndex]
		snap.Move = &mv
	}
	return snap
}
