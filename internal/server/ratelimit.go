package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterPool manages per-client token buckets sharing one rate
type RateLimiterPool struct {
	limiters map[string]*clientLimiter
	rps      rate.Limit
	burst    int
	mu       sync.Mutex
	now      func() time.Time
}

// NewRateLimiterPool creates a pool allowing requestsPerMinute per client
func NewRateLimiterPool(requestsPerMinute int) *RateLimiterPool {
	return &RateLimiterPool{
		limiters: make(map[string]*clientLimiter),
		rps:      rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:    max(1, requestsPerMinute/5), // 20% burst capacity
		now:      time.Now,
	}
}

// Allow reports whether the client may make a request now. It never waits.
func (p *RateLimiterPool) Allow(clientID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	cl, exists := p.limiters[clientID]
	if !exists {
		cl = &clientLimiter{limiter: rate.NewLimiter(p.rps, p.burst)}
		p.limiters[clientID] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// Sweep drops limiters not used since cutoff and returns how many were dropped
func (p *RateLimiterPool) Sweep(cutoff time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for id, cl := range p.limiters {
		if cl.lastSeen.Before(cutoff) {
			delete(p.limiters, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients
func (p *RateLimiterPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.limiters)
}
