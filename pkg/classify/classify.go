package classify

import (
	"context"
	"errors"
	"strings"

	"followscout/pkg/instagram"
)

// Kind is the scout's failure taxonomy. It decides what happens to the
// identity that hit the failure and whether the scan is worth retrying.
type Kind string

const (
	// KindExpiredCredential means the identity's session is permanently
	// unusable until an operator refreshes it.
	KindExpiredCredential Kind = "expired_credential"

	// KindRateLimited means the identity is temporarily throttled and
	// must cool down before it is selected again.
	KindRateLimited Kind = "rate_limited"

	// KindSuspiciousChallenge means the provider flagged the identity
	// (challenge/checkpoint). The identity is disabled and surfaced
	// prominently since it implies account risk.
	KindSuspiciousChallenge Kind = "suspicious_challenge"

	// KindTransientBug means a provider-side glitch or a local shutdown:
	// the identity that hit it carries no penalty.
	KindTransientBug Kind = "transient_bug"

	// KindUnknownFatal means no usable path remains for this target in
	// this run.
	KindUnknownFatal Kind = "unknown_fatal"
)

// Classify maps a raw scraping failure onto the taxonomy. Classification
// is structural: it looks at the error's type, status code, and message
// shape, never at timing.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknownFatal
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// The pass is shutting down. The identity did nothing wrong.
		return KindTransientBug
	}

	var igErr *instagram.Error
	if errors.As(err, &igErr) {
		switch igErr.Type {
		case instagram.ErrorTypeAuth:
			return KindExpiredCredential
		case instagram.ErrorTypeRateLimit:
			return KindRateLimited
		case instagram.ErrorTypeChallenge:
			return KindSuspiciousChallenge
		case instagram.ErrorTypeParsing,
			instagram.ErrorTypeServerError,
			instagram.ErrorTypeEmptyResult,
			instagram.ErrorTypeNetwork:
			// Known provider anomalies: malformed or empty payloads,
			// 5xx responses, connection flakes. The identity is fine.
			return KindTransientBug
		case instagram.ErrorTypeNotFound:
			return KindUnknownFatal
		default:
			return KindUnknownFatal
		}
	}

	return classifyByMessage(err.Error())
}

// classifyByMessage is the fallback for collaborators that surface plain
// errors. The signal set is provider-specific and revisited per
// integration.
func classifyByMessage(msg string) Kind {
	msg = strings.ToLower(msg)

	switch {
	case strings.Contains(msg, "login_required") || strings.Contains(msg, "login required"):
		return KindExpiredCredential
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return KindRateLimited
	case strings.Contains(msg, "challenge") || strings.Contains(msg, "checkpoint"):
		return KindSuspiciousChallenge
	case strings.Contains(msg, "malformed") || strings.Contains(msg, "empty follow list") ||
		strings.Contains(msg, "connection reset") || strings.Contains(msg, "unexpected eof"):
		return KindTransientBug
	default:
		return KindUnknownFatal
	}
}

// Disables reports whether the kind takes the identity out of rotation
// permanently (operator must supply a fresh one).
func (k Kind) Disables() bool {
	return k == KindExpiredCredential || k == KindSuspiciousChallenge
}

// Penalizes reports whether the failure counts against the identity's
// health. Transient provider bugs never do.
func (k Kind) Penalizes() bool {
	return k != KindTransientBug
}

func (k Kind) String() string {
	return string(k)
}
