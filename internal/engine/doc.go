// Package engine sequences route playback for the pick/place robot.
//
// The Engine owns the single ExecutionState. Every mutation happens on one
// goroutine (Run): user controls, detection changes and timer firings are
// queued as events and processed one at a time. Timers carry the generation
// they were scheduled under, so a firing that was already queued when its
// timers were cancelled is recognised as stale and ignored.
//
// States:
//
//	Idle ──play──▶ Running ──pause──▶ Paused(User) ──resume──▶ Running
//	                  │ ▲
//	       detected   │ │  cleared
//	                  ▼ │
//	           Paused(Detection)
//
// Stop returns to Idle from any state. Natural completion of a move
// advances to the next one, wrapping at the end of the route.
//
// Commands are handed to a Dispatcher that must not block. The engine
// never waits for delivery.
package engine
