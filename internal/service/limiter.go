package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterRegistry hands out one token bucket per key (client IP for the
// token endpoints). Buckets idle for longer than idleTTL are dropped.
type LimiterRegistry struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	lastGC   time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLimiterRegistry(perSecond float64, burst int) *LimiterRegistry {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &LimiterRegistry{
		limiters: make(map[string]*limiterEntry),
		limit:    limit,
		burst:    burst,
		idleTTL:  10 * time.Minute,
	}
}

func (r *LimiterRegistry) Get(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.Sub(r.lastGC) > r.idleTTL {
		for k, e := range r.limiters {
			if now.Sub(e.lastSeen) > r.idleTTL {
				delete(r.limiters, k)
			}
		}
		r.lastGC = now
	}

	e, ok := r.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter
}
