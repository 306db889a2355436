package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// LogScanAttempt logs one scan attempt against a target
func LogScanAttempt(target, identityID string, attempt, maxAttempts int) {
	GetLogger().InfoWithFields("scanning target", map[string]interface{}{
		"target":       target,
		"identity":     identityID,
		"attempt":      attempt,
		"max_attempts": maxAttempts,
	})
}

// LogIdentityState logs an identity health transition
func LogIdentityState(identityID, state string, failureCount int) {
	fields := map[string]interface{}{
		"identity":      identityID,
		"state":         state,
		"failure_count": failureCount,
	}

	switch state {
	case "disabled", "expired", "suspicious":
		GetLogger().ErrorWithFields("identity taken out of rotation", fields)
	case "rate_limited":
		GetLogger().WarnWithFields("identity cooling down", fields)
	default:
		GetLogger().DebugWithFields("identity state updated", fields)
	}
}

// LogDiffSummary logs the outcome of a snapshot comparison
func LogDiffSummary(target string, added, removed int) {
	if added == 0 && removed == 0 {
		GetLogger().WithField("target", target).Info("no follow changes")
		return
	}
	GetLogger().InfoWithFields("follow changes detected", map[string]interface{}{
		"target":  target,
		"added":   added,
		"removed": removed,
	})
}

// LogRunSummary logs the final pass report
func LogRunSummary(scanned, succeeded, failed, events int) {
	GetLogger().InfoWithFields("pass completed", map[string]interface{}{
		"targets_scanned": scanned,
		"succeeded":       succeeded,
		"failed":          failed,
		"diff_events":     events,
	})
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing (useful for testing)
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
