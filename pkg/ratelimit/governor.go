package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"followscout/pkg/classify"
	"followscout/pkg/config"
	"followscout/pkg/logger"
	"followscout/pkg/retry"
)

// Governor paces scraping requests. It enforces a minimum spacing between
// requests made with the same identity and a randomized global spacing
// across all requests so a pass never looks like a burst.
//
// Spacing state is per identity: one identity waiting out its interval
// never blocks a scan that holds a different identity.
type Governor struct {
	mu sync.Mutex

	pacers       map[string]*pacer
	baseInterval time.Duration
	maxInterval  time.Duration
	multiplier   float64

	globalMin   time.Duration
	globalMax   time.Duration
	globalUntil time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	logger logger.Logger
}

// pacer tracks one identity's spacing
type pacer struct {
	interval    time.Duration
	nextAllowed time.Time
}

// NewGovernor creates a governor from the rate limit configuration
func NewGovernor(cfg config.RateLimitConfig, log logger.Logger) *Governor {
	if log == nil {
		log = logger.GetLogger()
	}

	multiplier := cfg.BackoffMultiplier
	if multiplier < 1.0 {
		multiplier = 2.0
	}

	return &Governor{
		pacers:       make(map[string]*pacer),
		baseInterval: cfg.PerIdentityInterval,
		maxInterval:  cfg.BackoffMax,
		multiplier:   multiplier,
		globalMin:    cfg.GlobalIntervalMin,
		globalMax:    cfg.GlobalIntervalMax,
		now:          time.Now,
		sleep:        retry.Wait,
		logger:       log,
	}
}

// BeforeRequest blocks until the identity's spacing and the global pacing
// both allow another request. The wait slot is reserved under the lock and
// slept out without it, so other identities proceed independently.
func (g *Governor) BeforeRequest(ctx context.Context, identityID string) error {
	g.mu.Lock()

	now := g.now()
	p := g.pacerFor(identityID)

	waitUntil := now
	if p.nextAllowed.After(waitUntil) {
		waitUntil = p.nextAllowed
	}
	if g.globalUntil.After(waitUntil) {
		waitUntil = g.globalUntil
	}

	// Reserve the slot before sleeping.
	p.nextAllowed = waitUntil.Add(p.interval)
	g.globalUntil = waitUntil.Add(g.globalInterval())

	delay := waitUntil.Sub(now)
	g.mu.Unlock()

	if delay > 0 {
		g.logger.DebugWithFields("pacing request", map[string]interface{}{
			"identity": identityID,
			"delay":    delay,
		})
	}

	return g.sleep(ctx, delay)
}

// AfterSuccess resets the identity's spacing to the base interval
func (g *Governor) AfterSuccess(identityID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pacerFor(identityID).interval = g.baseInterval
}

// AfterFailure extends the identity's spacing for rate-limited failures.
// Other failure kinds leave pacing untouched; their consequences are the
// pool's business.
func (g *Governor) AfterFailure(identityID string, kind classify.Kind) {
	if kind != classify.KindRateLimited {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.pacerFor(identityID)
	extended := time.Duration(float64(p.interval) * g.multiplier)
	if extended > g.maxInterval {
		extended = g.maxInterval
	}
	p.interval = extended

	g.logger.WarnWithFields("request spacing extended", map[string]interface{}{
		"identity": identityID,
		"interval": extended,
	})
}

// pacerFor returns the identity's pacer, creating it at base spacing.
// Callers must hold the lock.
func (g *Governor) pacerFor(identityID string) *pacer {
	p, ok := g.pacers[identityID]
	if !ok {
		p = &pacer{interval: g.baseInterval}
		g.pacers[identityID] = p
	}
	return p
}

// globalInterval returns a randomized spacing in [globalMin, globalMax]
func (g *Governor) globalInterval() time.Duration {
	if g.globalMax <= g.globalMin {
		return g.globalMin
	}
	return g.globalMin + time.Duration(rand.Int63n(int64(g.globalMax-g.globalMin)))
}
