// Package api implements the HTTP REST API and WebSocket server for the
// route player.
//
// This package provides:
//   - REST endpoints for the route catalogue and run history
//   - Playback controls (play, pause, resume, stop) and the current snapshot
//   - WebSocket hub broadcasting every engine snapshot on "playback.state"
//   - Prometheus exposition on /metrics
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The server sits between operator UIs and the playback engine. Controls
// are forwarded to the engine, which applies them on its own event loop;
// the resulting snapshots flow back through the hub to every subscribed
// client.
//
// # Errors
//
// Every error response has the shape {"status", "code", "message"}. Only
// an invalid play target is reported from the engine; channel failures
// never reach API callers.
package api
