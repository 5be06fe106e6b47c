package route

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	maxNameLength   = 100
	maxMoves        = 500
	maxMoveDuration = 3600 // one hour
)

var validDirections map[Direction]struct{}

func init() {
	validDirections = make(map[Direction]struct{}, len(AllDirections()))
	for _, d := range AllDirections() {
		validDirections[d] = struct{}{}
	}
}

// ValidateRoute returns the first validation failure in r.
func ValidateRoute(r *Route) error {
	if r == nil {
		return ErrInvalidRoute
	}
	if err := ValidateName(r.Name); err != nil {
		return err
	}
	if len(r.Moves) == 0 {
		return ErrNoMoves
	}
	if len(r.Moves) > maxMoves {
		return fmt.Errorf("%w: exceeds maximum of %d moves", ErrInvalidRoute, maxMoves)
	}
	for i, m := range r.Moves {
		if err := ValidateMove(m); err != nil {
			return fmt.Errorf("move %d: %w", i, err)
		}
	}
	return nil
}

// ValidateName checks a route name: non-blank, at most 100 characters.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if utf8.RuneCountInString(trimmed) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateMove checks the move's type, enum value and duration range.
func ValidateMove(m Move) error {
	if m.Duration < 0 || m.Duration > maxMoveDuration {
		return fmt.Errorf("%w: duration must be 0-%d seconds, got %d", ErrInvalidMove, maxMoveDuration, m.Duration)
	}

	switch m.Type {
	case MoveTypeMovement:
		if _, ok := validDirections[m.Direction]; !ok {
			return fmt.Errorf("%w: invalid direction %q", ErrInvalidMove, m.Direction)
		}
		if m.Action != "" {
			return fmt.Errorf("%w: movement must not carry an action", ErrInvalidMove)
		}
	case MoveTypeAction:
		if m.Action != ActionPick && m.Action != ActionPlace {
			return fmt.Errorf("%w: invalid action %q", ErrInvalidMove, m.Action)
		}
		if m.Direction != "" {
			return fmt.Errorf("%w: action must not carry a direction", ErrInvalidMove)
		}
	default:
		return fmt.Errorf("%w: invalid type %q", ErrInvalidMove, m.Type)
	}
	return nil
}

// GenerateID returns a new route identifier.
func GenerateID() string {
	return uuid.NewString()
}
