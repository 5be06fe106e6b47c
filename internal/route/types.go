package route

import (
	"encoding/json"
	"fmt"
	"time"
)

// MoveType distinguishes the two kinds of move.
type MoveType string

const (
	MoveTypeMovement MoveType = "movement"
	MoveTypeAction   MoveType = "action"
)

// Direction is the heading of a movement move.
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
	DirectionLeft     Direction = "left"
	DirectionRight    Direction = "right"
)

// AllDirections returns every valid direction.
func AllDirections() []Direction {
	return []Direction{DirectionForward, DirectionBackward, DirectionLeft, DirectionRight}
}

// Action is the manipulator operation of an action move.
type Action string

const (
	ActionPick  Action = "pick"
	ActionPlace Action = "place"
)

// DefaultActionDuration applies to action moves recorded without a duration.
const DefaultActionDuration = 10

// Move is one unit of playback.
//
// Exactly one of Direction (Type == movement) or Action (Type == action) is
// set. Duration is in whole seconds; zero is legal and completes on the
// next tick.
type Move struct {
	Type      MoveType
	Direction Direction
	Action    Action
	Duration  int
}

// Movement builds a movement move.
func Movement(d Direction, seconds int) Move {
	return Move{Type: MoveTypeMovement, Direction: d, Duration: seconds}
}

// ActionMove builds an action move.
func ActionMove(a Action, seconds int) Move {
	return Move{Type: MoveTypeAction, Action: a, Duration: seconds}
}

// IsAction reports whether m is a pick/place move.
func (m Move) IsAction() bool {
	return m.Type == MoveTypeAction
}

// String renders the move for logs, e.g. "forward/3s" or "pick/10s".
func (m Move) String() string {
	if m.IsAction() {
		return fmt.Sprintf("%s/%ds", m.Action, m.Duration)
	}
	return fmt.Sprintf("%s/%ds", m.Direction, m.Duration)
}

// moveRecord is the stored shape of a move. Movements omit "type"; actions
// carry type "action". A missing duration on an action means
// DefaultActionDuration.
type moveRecord struct {
	Type      string `json:"type,omitempty" mapstructure:"type"`
	Direction string `json:"direction,omitempty" mapstructure:"direction"`
	Action    string `json:"action,omitempty" mapstructure:"action"`
	Duration  *int   `json:"duration,omitempty" mapstructure:"duration"`
}

func (rec moveRecord) toMove() Move {
	m := Move{Direction: Direction(rec.Direction), Action: Action(rec.Action)}
	if rec.Type == string(MoveTypeAction) || (rec.Type == "" && rec.Action != "") {
		m.Type = MoveTypeAction
		m.Direction = ""
		m.Duration = DefaultActionDuration
	} else {
		m.Type = MoveType(rec.Type)
		if m.Type == "" {
			m.Type = MoveTypeMovement
		}
	}
	if rec.Duration != nil {
		m.Duration = *rec.Duration
	}
	return m
}

// MarshalJSON writes the stored move shape.
func (m Move) MarshalJSON() ([]byte, error) {
	d := m.Duration
	rec := moveRecord{Duration: &d}
	if m.IsAction() {
		rec.Type = string(MoveTypeAction)
		rec.Action = string(m.Action)
	} else {
		rec.Direction = string(m.Direction)
	}
	return json.Marshal(rec)
}

// UnmarshalJSON reads the stored move shape.
func (m *Move) UnmarshalJSON(data []byte) error {
	var rec moveRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	*m = rec.toMove()
	return nil
}

// Route is a named, ordered sequence of moves.
type Route struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Moves     []Move    `json:"moves"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy returns a copy that shares no memory with r.
func (r *Route) DeepCopy() *Route {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Moves != nil {
		cp.Moves = make([]Move, len(r.Moves))
		copy(cp.Moves, r.Moves)
	}
	return &cp
}

// Len returns the number of moves.
func (r *Route) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Moves)
}
