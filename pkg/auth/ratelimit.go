package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter decides whether an authenticated caller may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, identity *Identity) error
}

// SubjectLimiter keeps one token bucket per subject. Buckets idle for
// longer than the idle window are dropped on the next sweep.
type SubjectLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewSubjectLimiter allows requestsPerMinute per subject with the given
// burst. A non-positive rate disables limiting; burst defaults to one
// minute's worth of requests.
func NewSubjectLimiter(requestsPerMinute, burst int) *SubjectLimiter {
	if burst <= 0 {
		burst = requestsPerMinute
	}
	return &SubjectLimiter{
		limit:   rate.Limit(float64(requestsPerMinute) / 60),
		burst:   burst,
		idle:    10 * time.Minute,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow implements RateLimiter.
func (l *SubjectLimiter) Allow(_ context.Context, identity *Identity) error {
	if l.limit <= 0 || identity == nil {
		return nil
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)
	b, ok := l.buckets[identity.Subject]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[identity.Subject] = b
	}
	b.seen = now
	if !b.lim.AllowN(now, 1) {
		return ErrTooManyRequests
	}
	return nil
}

func (l *SubjectLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idle {
		return
	}
	for subject, b := range l.buckets {
		if now.Sub(b.seen) >= l.idle {
			delete(l.buckets, subject)
		}
	}
	l.lastSweep = now
}
