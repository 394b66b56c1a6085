package ratelimit

import (
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

const sweepProbability = 0.1

type Config struct {
	MaxRequests int
	Window      time.Duration
}

type Result struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

type entry struct {
	count     int
	resetTime time.Time
}

// Limiter is a fixed-window counter keyed by caller identity. State is
// process-local; with multiple processes each enforces its own window, which
// approximates the global limit.
type Limiter struct {
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
	sweepFn func() float64

	mu      sync.Mutex
	entries map[string]*entry
}

func NewLimiter(cfg Config, logger *zap.Logger) *Limiter {
	return &Limiter{
		cfg:     cfg,
		logger:  logger.Named("RateLimiter"),
		now:     time.Now,
		sweepFn: rand.Float64,
		entries: make(map[string]*entry),
	}
}

// Check counts one request for the identity and reports whether it is allowed
// within the current window. The read-check-increment runs under the lock so
// two concurrent requests cannot both take the last slot.
func (l *Limiter) Check(identity string) Result {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sweepFn() < sweepProbability {
		for k, v := range l.entries {
			if now.After(v.resetTime) {
				delete(l.entries, k)
			}
		}
	}

	e, ok := l.entries[identity]
	if !ok || now.After(e.resetTime) {
		l.entries[identity] = &entry{count: 1, resetTime: now.Add(l.cfg.Window)}
		return Result{Allowed: true, Remaining: l.cfg.MaxRequests - 1, ResetIn: l.cfg.Window}
	}

	if e.count >= l.cfg.MaxRequests {
		return Result{Allowed: false, Remaining: 0, ResetIn: e.resetTime.Sub(now)}
	}

	e.count++
	return Result{Allowed: true, Remaining: l.cfg.MaxRequests - e.count, ResetIn: e.resetTime.Sub(now)}
}

// SetNowFunc replaces the clock, for tests with controlled time.
func (l *Limiter) SetNowFunc(now func() time.Time) {
	l.now = now
}

// SetSweepFunc replaces the sweep dice roll, for deterministic tests.
func (l *Limiter) SetSweepFunc(fn func() float64) {
	l.sweepFn = fn
}

// Len reports the number of tracked identities, for tests.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
