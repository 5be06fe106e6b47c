// Package logging provides structured logging for pickroute.
//
// It wraps log/slog so every component logs the same way.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	engineLog := logger.Component("engine")
//	engineLog.Info("move started", "route_id", id, "move_index", 0)
//
// Channel write failures and malformed detection payloads are logged at
// warn level; they never stop playback.
package logging
