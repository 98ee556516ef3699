// Package redis provides the go-redis/v9 client bootstrap: URL-based
// configuration, startup retries, and a health probe.
//
// Redis is used as a best-effort cache in this platform (the webhook
// gateway's duplicate-suppression fast path); it is never a correctness
// dependency, so callers should degrade gracefully when it is unavailable.
package redis
