package engine

import "errors"

var (
	// ErrInvalidPlayTarget is returned by Play when the route is missing or
	// has no moves, or when there is nothing paused to continue.
	ErrInvalidPlayTarget = errors.New("engine: invalid play target")

	// ErrNotRunning is returned by Play when the event loop has exited.
	ErrNotRunning = errors.New("engine: not running")
)
