// Package logging provides structured logging for the bridge.
//
// It wraps log/slog with JSON or text output, level filtering and default
// service and version fields on every entry.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("bridge started", "prefix", cfg.Appliance.TopicPrefix)
//
//	busLog := logger.With("component", "mqtt")
//
// *Logger satisfies the small Logger interfaces declared by the core
// packages, so it can be passed to their SetLogger methods directly.
package logging
