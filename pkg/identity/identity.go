package identity

import "time"

// HealthState describes whether an identity can be selected for scanning
type HealthState string

const (
	// Healthy identities are selectable.
	Healthy HealthState = "healthy"
	// RateLimited identities are selectable again once their cooldown passes.
	RateLimited HealthState = "rate_limited"
	// Expired identities have a dead session and never recover automatically.
	Expired HealthState = "expired"
	// Suspicious identities hit a provider challenge and never recover
	// automatically. They imply account risk and are surfaced prominently.
	Suspicious HealthState = "suspicious"
	// Disabled identities accumulated too many unexplained failures.
	Disabled HealthState = "disabled"
)

// Selectable reports whether the state permits selection at all.
// Cooldown gating is applied separately.
func (s HealthState) Selectable() bool {
	return s == Healthy || s == RateLimited
}

// Identity is one scanning identity: a session secret plus the optional
// proxy its requests egress through, with health bookkeeping. Owned
// exclusively by the Pool; callers get copies.
type Identity struct {
	ID            string
	SessionSecret string
	Proxy         string
	Health        HealthState
	CooldownUntil time.Time
	FailureCount  int
	lastUsed      time.Time
}

// HealthRecord is the persisted form of an identity's health, written to
// the state store after each pass and restored on the next one.
type HealthRecord struct {
	ID            string      `json:"id"`
	Health        HealthState `json:"health"`
	CooldownUntil time.Time   `json:"cooldown_until"`
	FailureCount  int         `json:"failure_count"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Stats summarizes the pool for run reports
type Stats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Disabled int `json:"disabled"`
}
