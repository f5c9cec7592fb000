package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Eviction tuning. An idle bucket costs memory but no tokens, so the sweep
// only needs to be coarse.
const (
	sweepInterval = time.Minute
	idleTTL       = 10 * time.Minute
)

// MemoryLimiter is a per-key token bucket held in process memory. The server
// keys chat traffic by user id and auth traffic by client IP, so the key
// space is bounded by active clients; a background sweep evicts buckets idle
// past the TTL.
type MemoryLimiter struct {
	rate  float64 // tokens refilled per second
	burst float64 // bucket capacity

	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time

	closeOnce sync.Once
	done      chan struct{}
}

// bucket tracks the spendable tokens for one key. Refill is computed lazily
// from the time since the previous request; there is no per-bucket timer.
type bucket struct {
	tokens float64
	last   time.Time
}

// take refills for the elapsed time, caps at burst, then spends one token
// if available.
func (b *bucket) take(now time.Time, rate, burst float64) bool {
	b.tokens += now.Sub(b.last).Seconds() * rate
	if b.tokens > burst {
		b.tokens = burst
	}
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// NewMemoryLimiter creates a limiter refilling rate tokens per second per
// key, with capacity burst. Call Close to stop the eviction goroutine.
func NewMemoryLimiter(rate float64, burst int) *MemoryLimiter {
	m := &MemoryLimiter{
		rate:    rate,
		burst:   float64(burst),
		buckets: make(map[string]*bucket),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Allow spends one token from key's bucket. A key's first request finds a
// full bucket.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{tokens: m.burst, last: now}
		m.buckets[key] = b
	}
	return b.take(now, m.rate, m.burst), nil
}

// Close stops the eviction goroutine. Safe to call more than once.
func (m *MemoryLimiter) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return nil
}

func (m *MemoryLimiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

func (m *MemoryLimiter) evictIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-idleTTL)
	for key, b := range m.buckets {
		if b.last.Before(cutoff) {
			delete(m.buckets, key)
		}
	}
}
