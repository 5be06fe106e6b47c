package dispatch

import (
	"time"

	"github.com/nerrad567/pickroute/internal/remote"
	"github.com/nerrad567/pickroute/internal/route"
)

// Channel command codes.
const (
	CodeForward  = "F"
	CodeBackward = "B"
	CodeLeft     = "L"
	CodeRight    = "R"
	CodeStop     = "S"
	CodePick     = "P1"
	CodePlace    = "P0"
	CodeCleared  = "0"
)

var directionCodes = map[route.Direction]string{
	route.DirectionForward:  CodeForward,
	route.DirectionBackward: CodeBackward,
	route.DirectionLeft:     CodeLeft,
	route.DirectionRight:    CodeRight,
}

// DirectionCode returns the single-letter code for d.
func DirectionCode(d route.Direction) (string, bool) {
	code, ok := directionCodes[d]
	return code, ok
}

// ActionCode returns the picking marker for a.
func ActionCode(a route.Action) (string, bool) {
	switch a {
	case route.ActionPick:
		return CodePick, true
	case route.ActionPlace:
		return CodePlace, true
	default:
		return "", false
	}
}

// Timestamp formats t the way the node's timestamp field expects.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// plan is the translation of one engine decision.
type plan struct {
	update remote.Update
	serial []string
}

// movePlan translates an activated move with the seconds it should run.
// ok is false for a move with no valid code.
func movePlan(m route.Move, seconds int, now time.Time) (plan, bool) {
	if m.IsAction() {
		code, ok := ActionCode(m.Action)
		if !ok {
			return plan{}, false
		}
		// The platform must be stationary before the manipulator moves.
		return plan{
			update: remote.Update{Movements: CodeStop, Picking: code, Timestamp: Timestamp(now)},
			serial: []string{CodeStop, code},
		}, true
	}

	code, ok := DirectionCode(m.Direction)
	if !ok {
		return plan{}, false
	}
	return plan{
		update: remote.Update{Movements: code, Duration: remote.Seconds(seconds), Timestamp: Timestamp(now)},
		serial: []string{code},
	}, true
}

func actionDonePlan(now time.Time) plan {
	return plan{update: remote.Update{Picking: CodeCleared, Timestamp: Timestamp(now)}}
}

func haltPlan(now time.Time) plan {
	return plan{
		update: remote.Update{Movements: CodeStop, Timestamp: Timestamp(now)},
		serial: []string{CodeStop},
	}
}

// stopPlan resets every move-specific field on the node.
func stopPlan(now time.Time) plan {
	return plan{
		update: remote.Update{Movements: CodeStop, Duration: remote.Seconds(0), Timestamp: Timestamp(now), Picking: CodeCleared},
		serial: []string{CodeStop},
	}
}
