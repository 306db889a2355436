package identity

import (
	"errors"
	"sync"
	"time"

	"followscout/pkg/classify"
	"followscout/pkg/logger"
	"followscout/pkg/retry"
)

// ErrExhausted signals that no selectable identity remains for a scan.
var ErrExhausted = errors.New("identity pool exhausted")

// DefaultMaxFailures is how many penalized failures an identity survives
// before it is disabled outright.
const DefaultMaxFailures = 3

// Pool owns the scanning identities and decides which one serves the next
// request. All selection and health mutation happens under one lock so two
// concurrent scans never race on an identity's state.
type Pool struct {
	mu          sync.Mutex
	identities  map[string]*Identity
	order       []string
	backoff     retry.BackoffStrategy
	maxFailures int
	now         func() time.Time
	logger      logger.Logger
}

// NewPool creates a pool from the configured identities. All start healthy;
// previously persisted health is applied via Restore.
func NewPool(identities []Identity, backoff retry.BackoffStrategy, log logger.Logger) *Pool {
	if backoff == nil {
		backoff = retry.DefaultExponentialBackoff()
	}
	if log == nil {
		log = logger.GetLogger()
	}

	p := &Pool{
		identities:  make(map[string]*Identity, len(identities)),
		order:       make([]string, 0, len(identities)),
		backoff:     backoff,
		maxFailures: DefaultMaxFailures,
		now:         time.Now,
		logger:      log,
	}

	for _, ident := range identities {
		ident := ident
		if ident.Health == "" {
			ident.Health = Healthy
		}
		p.identities[ident.ID] = &ident
		p.order = append(p.order, ident.ID)
	}

	return p
}

// SetClock overrides the pool's time source (used by tests)
func (p *Pool) SetClock(now func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = now
}

// SetMaxFailures overrides the disable threshold
func (p *Pool) SetMaxFailures(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n > 0 {
		p.maxFailures = n
	}
}

// Acquire selects the best available identity not present in exclude.
// Candidates must be selectable and past their cooldown; among them the
// one with the fewest failures wins, ties going to the least recently
// penalized, then least recently used. Returns ErrExhausted when no
// candidate remains.
func (p *Pool) Acquire(exclude map[string]bool) (Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	var best *Identity

	for _, id := range p.order {
		ident := p.identities[id]

		if exclude[ident.ID] {
			continue
		}
		if !ident.Health.Selectable() {
			continue
		}
		if ident.CooldownUntil.After(now) {
			continue
		}

		if best == nil || betterCandidate(ident, best) {
			best = ident
		}
	}

	if best == nil {
		return Identity{}, ErrExhausted
	}

	best.lastUsed = now

	p.logger.DebugWithFields("identity selected", map[string]interface{}{
		"identity":      best.ID,
		"failure_count": best.FailureCount,
	})

	return *best, nil
}

// betterCandidate reports whether a should be preferred over b
func betterCandidate(a, b *Identity) bool {
	if a.FailureCount != b.FailureCount {
		return a.FailureCount < b.FailureCount
	}
	if !a.CooldownUntil.Equal(b.CooldownUntil) {
		return a.CooldownUntil.Before(b.CooldownUntil)
	}
	return a.lastUsed.Before(b.lastUsed)
}

// ReportSuccess resets the identity's health after a successful scan
func (p *Pool) ReportSuccess(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ident, ok := p.identities[id]
	if !ok {
		return
	}

	if ident.FailureCount > 0 {
		p.logger.InfoWithFields("identity recovered", map[string]interface{}{
			"identity": id,
		})
	}

	ident.FailureCount = 0
	ident.CooldownUntil = time.Time{}
	if ident.Health == RateLimited {
		ident.Health = Healthy
	}
	if ident.Health == "" {
		ident.Health = Healthy
	}
}

// ReportFailure applies the classifier's verdict to the identity's health
func (p *Pool) ReportFailure(id string, kind classify.Kind) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ident, ok := p.identities[id]
	if !ok {
		return
	}

	if !kind.Penalizes() {
		// Provider glitch: the identity did nothing wrong.
		return
	}

	switch kind {
	case classify.KindExpiredCredential:
		ident.Health = Expired
	case classify.KindSuspiciousChallenge:
		ident.Health = Suspicious
	case classify.KindRateLimited:
		ident.FailureCount++
		ident.CooldownUntil = p.now().Add(p.backoff.NextDelay(ident.FailureCount))
		ident.Health = RateLimited
	default:
		ident.FailureCount++
		ident.CooldownUntil = p.now().Add(p.backoff.NextDelay(ident.FailureCount))
		if ident.FailureCount >= p.maxFailures {
			ident.Health = Disabled
		}
	}

	logger.LogIdentityState(ident.ID, string(ident.Health), ident.FailureCount)
}

// Stats returns a summary of the pool for run reports
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := Stats{Total: len(p.identities)}
	for _, ident := range p.identities {
		if ident.Health.Selectable() {
			stats.Active++
		} else {
			stats.Disabled++
		}
	}
	return stats
}

// HealthRecords exports every identity's persistable health state
func (p *Pool) HealthRecords() []HealthRecord {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	records := make([]HealthRecord, 0, len(p.order))
	for _, id := range p.order {
		ident := p.identities[id]
		records = append(records, HealthRecord{
			ID:            ident.ID,
			Health:        ident.Health,
			CooldownUntil: ident.CooldownUntil,
			FailureCount:  ident.FailureCount,
			UpdatedAt:     now,
		})
	}
	return records
}

// Restore applies previously persisted health records. Records for
// identities no longer configured are ignored; identities without a record
// stay healthy.
func (p *Pool) Restore(records []HealthRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, rec := range records {
		ident, ok := p.identities[rec.ID]
		if !ok {
			continue
		}
		if rec.Health != "" {
			ident.Health = rec.Health
		}
		ident.CooldownUntil = rec.CooldownUntil
		ident.FailureCount = rec.FailureCount
	}
}
