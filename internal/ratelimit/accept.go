// Package ratelimit gates new accepts ahead of the acceptor's hard
// maxclients cap: per-IP and global token buckets built on
// golang.org/x/time/rate. It only needs a yes/no gate at accept time, not a
// full observability subsystem with alerting hooks — see DESIGN.md.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// AcceptLimiter decides whether a new connection attempt from an address may
// proceed, distinct from the acceptor's post-construction maxclients check:
// this runs before a Client is even built.
type AcceptLimiter struct {
	mu      sync.Mutex
	perIP   map[string]*rate.Limiter
	ipBurst int
	ipRate  rate.Limit

	global *rate.Limiter
}

// Config configures per-IP and global accept rate limits.
type Config struct {
	IPBurst      int
	IPPerSec     float64
	GlobalBurst  int
	GlobalPerSec float64
}

func New(cfg Config) *AcceptLimiter {
	return &AcceptLimiter{
		perIP:   make(map[string]*rate.Limiter),
		ipBurst: cfg.IPBurst,
		ipRate:  rate.Limit(cfg.IPPerSec),
		global:  rate.NewLimiter(rate.Limit(cfg.GlobalPerSec), cfg.GlobalBurst),
	}
}

// Allow reports whether a connection attempt from ip may proceed now.
func (l *AcceptLimiter) Allow(ip string) bool {
	if !l.global.Allow() {
		return false
	}

	l.mu.Lock()
	lim, ok := l.perIP[ip]
	if !ok {
		lim = rate.NewLimiter(l.ipRate, l.ipBurst)
		l.perIP[ip] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}

// Sweep bounds memory use under churn from many distinct source addresses:
// once more than 100,000 per-IP limiters are tracked, it drops all of them.
// ttl is not consulted; limiters are not evicted by age. Sweep runs on its
// own ticker goroutine in cmd/kvserver while Allow runs on the reactor
// goroutine, so both take l.mu.
func (l *AcceptLimiter) Sweep(ttl time.Duration) {
	// rate.Limiter does not expose last-use time, so the map is bounded by
	// size alone.
	l.mu.Lock()
	defer l.mu.Unlock()
	const maxTracked = 100_000
	if len(l.perIP) <= maxTracked {
		return
	}
	l.perIP = make(map[string]*rate.Limiter)
}
