// Package route holds the route catalogue: the Move and Route model, their
// validation, SQLite persistence and a cached Registry.
//
// A Route is a named, ordered list of timed moves. A move is either a
// directional movement (forward, backward, left, right) or a pick/place
// action. Playback cycles through the moves forever; the engine only ever
// sees deep copies handed out by the Registry, so a route being edited or
// deleted never changes a session already in progress.
//
// Routes recorded by the original robot console can be imported from its
// store export with ParseExport.
package route
