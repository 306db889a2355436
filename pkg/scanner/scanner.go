package scanner

import (
	"context"
	"errors"
	"fmt"

	"followscout/pkg/classify"
	"followscout/pkg/identity"
	"followscout/pkg/instagram"
	"followscout/pkg/logger"
	"followscout/pkg/ratelimit"
)

// FollowFetcher fetches a target's complete follow list using the given
// credential. Implemented by instagram.Client in production and by stubs
// in tests.
type FollowFetcher interface {
	FetchFollowSet(ctx context.Context, target string, cred instagram.Credential) ([]string, error)
}

// Outcome is the result of scanning one target
type Outcome struct {
	Target       string
	Follows      []string
	IdentityUsed string
	Attempts     int
	Err          error
	Kind         classify.Kind
}

// Succeeded reports whether the scan produced a usable follow list
func (o Outcome) Succeeded() bool { return o.Err == nil }

// Scanner runs the scan of one target: pick an identity, pace the request,
// fetch, and on failure classify, report, and rotate to an identity that
// has not been tried for this target yet.
type Scanner struct {
	fetcher    FollowFetcher
	pool       *identity.Pool
	governor   *ratelimit.Governor
	maxRetries int
	logger     logger.Logger
}

// New creates a scanner. maxRetries bounds the attempts per target; each
// attempt uses a different identity.
func New(fetcher FollowFetcher, pool *identity.Pool, governor *ratelimit.Governor, maxRetries int, log logger.Logger) *Scanner {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Scanner{
		fetcher:    fetcher,
		pool:       pool,
		governor:   governor,
		maxRetries: maxRetries,
		logger:     log,
	}
}

// Scan fetches the target's follow list, rotating identities across
// attempts. Identities that failed for this target are excluded from
// later attempts even when the pool still considers them usable.
func (s *Scanner) Scan(ctx context.Context, target string) Outcome {
	outcome := Outcome{Target: target}
	tried := make(map[string]bool)

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			outcome.Err = err
			outcome.Kind = classify.Classify(err)
			return outcome
		}

		ident, err := s.pool.Acquire(tried)
		if err != nil {
			outcome.Err = fmt.Errorf("scanning %s: %w", target, err)
			outcome.Kind = classify.KindUnknownFatal
			return outcome
		}

		outcome.Attempts = attempt
		outcome.IdentityUsed = ident.ID
		tried[ident.ID] = true

		logger.LogScanAttempt(target, ident.ID, attempt, s.maxRetries)

		if err := s.governor.BeforeRequest(ctx, ident.ID); err != nil {
			outcome.Err = err
			outcome.Kind = classify.Classify(err)
			return outcome
		}

		follows, err := s.fetcher.FetchFollowSet(ctx, target, instagram.Credential{
			SessionSecret: ident.SessionSecret,
			Proxy:         ident.Proxy,
		})
		if err == nil {
			s.pool.ReportSuccess(ident.ID)
			s.governor.AfterSuccess(ident.ID)
			outcome.Follows = follows
			outcome.Err = nil
			return outcome
		}

		kind := classify.Classify(err)
		s.pool.ReportFailure(ident.ID, kind)
		s.governor.AfterFailure(ident.ID, kind)

		outcome.Err = err
		outcome.Kind = kind

		s.logger.WarnWithFields("scan attempt failed", map[string]interface{}{
			"target":   target,
			"identity": ident.ID,
			"attempt":  attempt,
			"kind":     kind.String(),
			"error":    err.Error(),
		})

		if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return outcome
		}
	}

	outcome.Err = fmt.Errorf("scanning %s: attempts exhausted: %w", target, outcome.Err)
	return outcome
}
