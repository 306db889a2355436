// Package retry provides backoff strategies used to pace retries and
// compute identity cooldown windows after rate-limited failures.
package retry
