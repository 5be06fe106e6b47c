package route

import "errors"

// Check with errors.Is():
//
//	if errors.Is(err, route.ErrNotFound) {
//	    // 404
//	}
var (
	// ErrNotFound is returned when a route ID does not exist.
	ErrNotFound = errors.New("route: not found")

	// ErrExists is returned when creating a route whose ID is taken.
	ErrExists = errors.New("route: already exists")

	// ErrInvalidRoute is returned when route validation fails.
	ErrInvalidRoute = errors.New("route: invalid")

	// ErrInvalidName is returned for an empty or over-long name.
	ErrInvalidName = errors.New("route: invalid name")

	// ErrNoMoves is returned for a route without moves.
	ErrNoMoves = errors.New("route: no moves")

	// ErrInvalidMove is returned when a move fails validation.
	ErrInvalidMove = errors.New("route: invalid move")
)
