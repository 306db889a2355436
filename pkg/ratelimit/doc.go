// Package ratelimit paces scraping requests to keep the scout's traffic
// pattern inconspicuous: per-identity minimum spacing, exponential spacing
// extension after rate-limited failures, and randomized global spacing
// between targets within a pass.
package ratelimit
