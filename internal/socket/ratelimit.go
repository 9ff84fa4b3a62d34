package socket

import (
	"sync"
	"time"
)

// RateLimiter is a per-connection token bucket guarding the inbound event
// path against flooding. The default rate is generous: it exists to stop a
// misbehaving client, not to pace course scroll updates; the coordinator
// trusts the sender's throttling there.
type RateLimiter struct {
	mu      sync.Mutex
	rate    float64 // tokens added per second; <= 0 disables limiting
	burst   float64
	buckets map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewRateLimiter creates a limiter refilling rate tokens per second up to
// burst. A rate of zero or less disables it.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:    rate,
		burst:   float64(burst),
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether one more inbound event from the connection fits the
// bucket. First sight of an id starts it at full burst.
func (rl *RateLimiter) Allow(connectionID string) bool {
	if rl.rate <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[connectionID]
	if !ok {
		rl.buckets[connectionID] = &bucket{tokens: rl.burst - 1, last: now}
		return true
	}

	b.tokens += now.Sub(b.last).Seconds() * rl.rate
	if b.tokens > rl.burst {
		b.tokens = rl.burst
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Forget drops a connection's bucket after disconnect.
func (rl *RateLimiter) Forget(connectionID string) {
	rl.mu.Lock()
	delete(rl.buckets, connectionID)
	rl.mu.Unlock()
}
