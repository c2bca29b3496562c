package server

import (
	"sync"
	"time"
)

// RateLimiter implements rate limiting using token bucket algorithm
type RateLimiter struct {
	buckets    map[string]*tokenBucket
	bucketsMux sync.RWMutex
	limit      int
	period     time.Duration
}

// tokenBucket represents a token bucket for rate limiting
type tokenBucket struct {
	tokens     int
	lastRefill time.Time
	mutex      sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*tokenBucket),
		limit:   limit,
		period:  period,
	}
}

// Allow checks if a request is allowed for the given caller
func (rl *RateLimiter) Allow(callerID string) bool {
	bucket := rl.getBucket(callerID)

	bucket.mutex.Lock()
	defer bucket.mutex.Unlock()

	// Refill tokens based on time elapsed
	now := time.Now()
	elapsed := now.Sub(bucket.lastRefill)

	if elapsed >= rl.period {
		bucket.tokens = rl.limit
		bucket.lastRefill = now
	} else {
		tokensToAdd := int(elapsed.Nanoseconds() * int64(rl.limit) / rl.period.Nanoseconds())
		bucket.tokens = min(bucket.tokens+tokensToAdd, rl.limit)
		if tokensToAdd > 0 {
			bucket.lastRefill = now
		}
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}

	return false
}

// Reset resets the rate limit for a caller
func (rl *RateLimiter) Reset(callerID string) {
	rl.bucketsMux.Lock()
	defer rl.bucketsMux.Unlock()

	if bucket, exists := rl.buckets[callerID]; exists {
		bucket.mutex.Lock()
		bucket.tokens = rl.limit
		bucket.lastRefill = time.Now()
		bucket.mutex.Unlock()
	}
}

// getBucket gets or creates a token bucket for a caller
func (rl *RateLimiter) getBucket(callerID string) *tokenBucket {
	rl.bucketsMux.RLock()
	bucket, exists := rl.buckets[callerID]
	rl.bucketsMux.RUnlock()

	if exists {
		return bucket
	}

	rl.bucketsMux.Lock()
	defer rl.bucketsMux.Unlock()

	// Double-check after acquiring write lock
	if bucket, exists := rl.buckets[callerID]; exists {
		return bucket
	}

	bucket = &tokenBucket{
		tokens:     rl.limit,
		lastRefill: time.Now(),
	}
	rl.buckets[callerID] = bucket

	return bucket
}

// Cleanup removes buckets idle for longer than the given age
func (rl *RateLimiter) Cleanup(maxAge time.Duration) {
	rl.bucketsMux.Lock()
	defer rl.bucketsMux.Unlock()

	cutoff := time.Now().Add(-maxAge)

	for callerID, bucket := range rl.buckets {
		bucket.mutex.Lock()
		if bucket.lastRefill.Before(cutoff) {
			delete(rl.buckets, callerID)
		}
		bucket.mutex.Unlock()
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
