// Package instagram is the scraping collaborator: a thin client over
// Instagram's web API that fetches the set of accounts a target follows.
//
// The client does no retrying and applies no policy. Every failure is
// surfaced as an *Error carrying the provider's structural signal (HTTP
// status plus message shape) so the classifier can decide whether the
// identity is burned, rate limited, or the provider just glitched.
package instagram
