package genai

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultCallsPerMinute is the per-client provider call budget.
	DefaultCallsPerMinute = 20
	anonymousKey          = "anonymous"
	idleLimiterTTL        = 30 * time.Minute
	sweepThreshold        = 1024
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter enforces a per-client token bucket on provider calls. A nil
// *Limiter allows everything. Limiter is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*limiterEntry
	now     func() time.Time
}

// NewLimiter allows perMinute calls per client with bursts of burst. It
// returns nil, meaning unlimited, when perMinute is not positive.
func NewLimiter(perMinute, burst int) *Limiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = perMinute
	}
	return &Limiter{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
		clients: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

// Allow reports whether client may make another provider call and consumes
// a token when it may. An empty client id shares one anonymous bucket.
func (l *Limiter) Allow(client string) bool {
	if l == nil {
		return true
	}
	if client == "" {
		client = anonymousKey
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.clients) >= sweepThreshold {
		l.sweep(now)
	}
	e, ok := l.clients[client]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// sweep drops buckets idle for longer than idleLimiterTTL. Callers hold mu.
func (l *Limiter) sweep(now time.Time) {
	for k, e := range l.clients {
		if now.Sub(e.lastSeen) > idleLimiterTTL {
			delete(l.clients, k)
		}
	}
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
