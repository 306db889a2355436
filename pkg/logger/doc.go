// Package logger provides structured logging for the follow scout.
//
// It wraps zerolog behind a small Logger interface so components can be
// tested with a capturing TestLogger or a no-op logger. Console output is
// human readable; an optional log file receives the same stream.
//
// Usage:
//
//	logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger()
//	log.InfoWithFields("scanning target", map[string]interface{}{
//	    "target":   "someuser",
//	    "identity": "bot1",
//	})
package logger
