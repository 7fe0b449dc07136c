package middleware

import (
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER MIDDLEWARE
// Per-user token bucket. Protects the store from button mashing.
// ══════════════════════════════════════════════════════════════════════════════

// RateLimitConfig holds configuration for the rate limiter.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained rate per user.
	RequestsPerMinute int

	// BurstSize is the bucket capacity.
	BurstSize int

	// IdleTTL drops buckets of users inactive this long.
	IdleTTL time.Duration

	// Whitelisted users are never limited (admins).
	Whitelisted map[string]bool

	// Now is the clock (default time.Now).
	Now func() time.Time
}

// DefaultRateLimitConfig returns sensible defaults for rate limiting.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 30,
		BurstSize:         10,
		IdleTTL:           10 * time.Minute,
	}
}

// RateLimiter implements per-user rate limiting using the token bucket algorithm.
type RateLimiter struct {
	config RateLimitConfig

	mu          sync.Mutex
	buckets     map[string]*tokenBucket
	lastCleanup time.Time
}

// tokenBucket represents a user's rate limit state.
type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a new rate limiter with the given configuration.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 30
	}
	if config.BurstSize <= 0 {
		config.BurstSize = 10
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &RateLimiter{
		config:      config,
		buckets:     make(map[string]*tokenBucket),
		lastCleanup: config.Now(),
	}
}

// RateLimitResult represents the result of a rate limit check.
type RateLimitResult struct {
	// Allowed indicates if the request is allowed.
	Allowed bool

	// RetryAfter is how long the user should wait before retrying.
	RetryAfter time.Duration
}

// Check consumes a token for the user if one is available.
func (rl *RateLimiter) Check(userID string) RateLimitResult {
	if rl.config.Whitelisted[userID] {
		return RateLimitResult{Allowed: true}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.config.Now()
	rl.maybeCleanup(now)

	maxTokens := float64(rl.config.BurstSize)
	rate := float64(rl.config.RequestsPerMinute) / 60 // tokens per second

	b, ok := rl.buckets[userID]
	if !ok {
		b = &tokenBucket{tokens: maxTokens, lastRefill: now}
		rl.buckets[userID] = b
	}

	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = min(maxTokens, b.tokens+elapsed*rate)
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return RateLimitResult{Allowed: true}
	}

	wait := time.Duration((1 - b.tokens) / rate * float64(time.Second))
	return RateLimitResult{RetryAfter: wait}
}

// Reset forgets the user's bucket.
func (rl *RateLimiter) Reset(userID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, userID)
}

// Len returns the number of tracked users.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// maybeCleanup drops idle buckets. Caller holds mu.
func (rl *RateLimiter) maybeCleanup(now time.Time) {
	if now.Sub(rl.lastCleanup) < rl.config.IdleTTL {
		return
	}
	rl.lastCleanup = now
	for id, b := range rl.buckets {
		if now.Sub(b.lastRefill) > rl.config.IdleTTL {
			delete(rl.buckets, id)
		}
	}
}
