package retry

import (
	"context"
	"testing"
	"time"
)

func TestExponentialBackoffGrowth(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		JitterFactor: 0, // deterministic for the test
	}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
	}

	for _, c := range cases {
		if got := eb.NextDelay(c.attempt); got != c.want {
			t.Errorf("NextDelay(%d) = %s, want %s", c.attempt, got, c.want)
		}
	}
}

func TestExponentialBackoffCap(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:  time.Second,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
	}

	if got := eb.NextDelay(10); got > 5*time.Second+time.Second {
		t.Errorf("Expected delay capped near 5s, got %s", got)
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:    10 * time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		JitterFactor: 0.5,
	}

	for i := 0; i < 100; i++ {
		d := eb.NextDelay(1)
		if d < 5*time.Second || d > 15*time.Second {
			t.Fatalf("Jittered delay %s outside [5s, 15s]", d)
		}
	}
}

func TestConstantBackoff(t *testing.T) {
	cb := &ConstantBackoff{Delay: 3 * time.Second}
	if got := cb.NextDelay(5); got != 3*time.Second {
		t.Errorf("Expected 3s, got %s", got)
	}
	if got := cb.NextDelay(0); got != 0 {
		t.Errorf("Expected 0 for attempt 0, got %s", got)
	}
}

func TestWaitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Wait(ctx, time.Minute); err == nil {
		t.Error("Expected context error from cancelled wait")
	}
}

func TestWaitZeroDelay(t *testing.T) {
	if err := Wait(context.Background(), 0); err != nil {
		t.Errorf("Expected nil for zero delay, got %v", err)
	}
}
