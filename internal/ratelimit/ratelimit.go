// Package ratelimit bounds how fast commands are issued to the control hub.
//
// The limiter keeps a rolling log of issue timestamps and enforces two windows
// at once: a sustained window (60 issues per 60s by default) and a burst guard
// (20 issues per 10s). Allow is a pure read; only Record mutates the log.
package ratelimit

import (
	"sync"
	"time"
)

// Config sets the limits of both windows
type Config struct {
	Limit       int
	Window      time.Duration
	BurstLimit  int
	BurstWindow time.Duration
}

// DefaultConfig returns 60 per minute with a burst guard of 20 per 10 seconds
func DefaultConfig() Config {
	return Config{
		Limit:       60,
		Window:      time.Minute,
		BurstLimit:  20,
		BurstWindow: 10 * time.Second,
	}
}

// Limiter is a dual-window rolling-log rate limiter. Safe for concurrent use.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu     sync.Mutex
	issued []time.Time // ascending
}

// New creates a Limiter. A nil now uses time.Now.
func New(cfg Config, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{cfg: cfg, now: now}
}

// countSince returns how many logged issues are newer than cutoff
func (l *Limiter) countSince(cutoff time.Time) int {
	n := 0
	for i := len(l.issued) - 1; i >= 0; i-- {
		if !l.issued[i].After(cutoff) {
			break
		}
		n++
	}
	return n
}

// Allow reports whether a new command may be issued now
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	return l.countSince(now.Add(-l.cfg.Window)) < l.cfg.Limit &&
		l.countSince(now.Add(-l.cfg.BurstWindow)) < l.cfg.BurstLimit
}

// Record registers that a command was issued now and prunes entries outside the sustained window
func (l *Limiter) Record() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.issued = append(l.issued, now)

	cutoff := now.Add(-l.cfg.Window)
	drop := 0
	for drop < len(l.issued) && !l.issued[drop].After(cutoff) {
		drop++
	}
	if drop > 0 {
		l.issued = append(l.issued[:0], l.issued[drop:]...)
	}
}

// CurrentRate is the number of issues within the sustained window
func (l *Limiter) CurrentRate() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.countSince(l.now().Add(-l.cfg.Window))
}

// TimeUntilAllowed returns how long until Allow could report true, or 0 if it already does
func (l *Limiter) TimeUntilAllowed() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()

	var wait time.Duration
	if d := l.waitFor(now, l.cfg.Window, l.cfg.Limit); d > wait {
		wait = d
	}
	if d := l.waitFor(now, l.cfg.BurstWindow, l.cfg.BurstLimit); d > wait {
		wait = d
	}
	return wait
}

// waitFor computes when enough entries leave window for the count to drop below limit
func (l *Limiter) waitFor(now time.Time, window time.Duration, limit int) time.Duration {
	n := l.countSince(now.Add(-window))
	if n < limit {
		return 0
	}
	// The entry that must expire is the (n-limit)th oldest inside the window.
	blocking := l.issued[len(l.issued)-n+(n-limit)]
	d := blocking.Add(window).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
