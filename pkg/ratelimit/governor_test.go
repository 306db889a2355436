package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"followscout/pkg/classify"
	"followscout/pkg/config"
	"followscout/pkg/logger"
)

func testRateConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		PerIdentityInterval: 5 * time.Second,
		GlobalIntervalMin:   time.Second,
		GlobalIntervalMax:   time.Second, // deterministic global spacing
		BackoffBase:         30 * time.Second,
		BackoffMax:          40 * time.Second,
		BackoffMultiplier:   2.0,
	}
}

// harness replaces the governor's clock and sleep so tests observe the
// delays it asks for without real waiting.
type harness struct {
	mu     sync.Mutex
	now    time.Time
	delays []time.Duration
}

func newHarness(g *Governor) *harness {
	h := &harness{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	g.now = h.Now
	g.sleep = h.Sleep
	return h
}

func (h *harness) Now() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func (h *harness) Sleep(ctx context.Context, d time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	h.delays = append(h.delays, d)
	if d > 0 {
		h.now = h.now.Add(d)
	}
	return nil
}

func (h *harness) lastDelay() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.delays) == 0 {
		return 0
	}
	return h.delays[len(h.delays)-1]
}

func TestFirstRequestNotDelayed(t *testing.T) {
	g := NewGovernor(testRateConfig(), logger.NewNopLogger())
	h := newHarness(g)

	if err := g.BeforeRequest(context.Background(), "a"); err != nil {
		t.Fatalf("BeforeRequest failed: %v", err)
	}
	if h.lastDelay() != 0 {
		t.Errorf("Expected no delay on first request, got %s", h.lastDelay())
	}
}

func TestPerIdentitySpacing(t *testing.T) {
	g := NewGovernor(testRateConfig(), logger.NewNopLogger())
	h := newHarness(g)
	ctx := context.Background()

	g.BeforeRequest(ctx, "a")
	g.BeforeRequest(ctx, "a")

	// Second request with the same identity must wait out the 5s spacing.
	if h.lastDelay() != 5*time.Second {
		t.Errorf("Expected 5s spacing for same identity, got %s", h.lastDelay())
	}
}

func TestGlobalSpacingAcrossIdentities(t *testing.T) {
	g := NewGovernor(testRateConfig(), logger.NewNopLogger())
	h := newHarness(g)
	ctx := context.Background()

	g.BeforeRequest(ctx, "a")
	g.BeforeRequest(ctx, "b")

	// Different identity, but the 1s global spacing still applies.
	if h.lastDelay() != time.Second {
		t.Errorf("Expected 1s global spacing, got %s", h.lastDelay())
	}
}

func TestRateLimitedFailureDoublesSpacing(t *testing.T) {
	g := NewGovernor(testRateConfig(), logger.NewNopLogger())
	h := newHarness(g)
	ctx := context.Background()

	g.BeforeRequest(ctx, "a")
	g.AfterFailure("a", classify.KindRateLimited)
	g.BeforeRequest(ctx, "a")
	g.AfterFailure("a", classify.KindRateLimited)
	g.BeforeRequest(ctx, "a")

	// After two rate-limited failures the interval is 20s; the third
	// request was reserved 10s after the second (doubled once at reserve
	// time of request two).
	if h.lastDelay() != 10*time.Second {
		t.Errorf("Expected 10s spacing after doubling, got %s", h.lastDelay())
	}
}

func TestSpacingCapped(t *testing.T) {
	g := NewGovernor(testRateConfig(), logger.NewNopLogger())

	for i := 0; i < 10; i++ {
		g.AfterFailure("a", classify.KindRateLimited)
	}

	g.mu.Lock()
	interval := g.pacerFor("a").interval
	g.mu.Unlock()

	if interval != 40*time.Second {
		t.Errorf("Expected interval capped at 40s, got %s", interval)
	}
}

func TestSuccessResetsSpacing(t *testing.T) {
	g := NewGovernor(testRateConfig(), logger.NewNopLogger())

	g.AfterFailure("a", classify.KindRateLimited)
	g.AfterFailure("a", classify.KindRateLimited)
	g.AfterSuccess("a")

	g.mu.Lock()
	interval := g.pacerFor("a").interval
	g.mu.Unlock()

	if interval != 5*time.Second {
		t.Errorf("Expected interval reset to base 5s, got %s", interval)
	}
}

func TestNonRateLimitFailureLeavesSpacing(t *testing.T) {
	g := NewGovernor(testRateConfig(), logger.NewNopLogger())

	g.AfterFailure("a", classify.KindTransientBug)
	g.AfterFailure("a", classify.KindExpiredCredential)

	g.mu.Lock()
	interval := g.pacerFor("a").interval
	g.mu.Unlock()

	if interval != 5*time.Second {
		t.Errorf("Expected base interval untouched, got %s", interval)
	}
}

func TestBeforeRequestCancelled(t *testing.T) {
	g := NewGovernor(testRateConfig(), logger.NewNopLogger())
	newHarness(g)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g.BeforeRequest(context.Background(), "a")
	if err := g.BeforeRequest(ctx, "a"); err == nil {
		t.Error("Expected context error for cancelled wait")
	}
}
