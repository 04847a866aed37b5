package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter() (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	return New(DefaultConfig(), clock.now), clock
}

func issue(l *Limiter) bool {
	if !l.Allow() {
		return false
	}
	l.Record()
	return true
}

func TestAllowIsPure(t *testing.T) {
	l, _ := newTestLimiter()
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow())
	}
	assert.Equal(t, 0, l.CurrentRate())
}

func TestBurstWindowCapsAtTwenty(t *testing.T) {
	l, clock := newTestLimiter()
	allowed := 0
	for i := 0; i < 50; i++ {
		if issue(l) {
			allowed++
		}
		clock.advance(100 * time.Millisecond)
	}
	assert.Equal(t, 20, allowed)
}

func TestSustainedWindowCapsAtSixty(t *testing.T) {
	l, clock := newTestLimiter()
	allowed := 0
	// One attempt every 400ms for 60s: never more than 20 in 10s, capped by 60 in 60s.
	for i := 0; i < 150; i++ {
		if issue(l) {
			allowed++
		}
		clock.advance(400 * time.Millisecond)
	}
	assert.Equal(t, 60, allowed)
}

func TestNeverExceedsLimitsInAnyWindow(t *testing.T) {
	l, clock := newTestLimiter()
	var accepted []time.Time
	for i := 0; i < 600; i++ {
		if issue(l) {
			accepted = append(accepted, clock.t)
		}
		clock.advance(150 * time.Millisecond)
	}
	for i, start := range accepted {
		in10, in60 := 0, 0
		for _, ts := range accepted[i:] {
			if ts.Sub(start) < 10*time.Second {
				in10++
			}
			if ts.Sub(start) < 60*time.Second {
				in60++
			}
		}
		assert.LessOrEqual(t, in10, 20)
		assert.LessOrEqual(t, in60, 60)
	}
}

func TestRecoversAfterBurstWindow(t *testing.T) {
	l, clock := newTestLimiter()
	for i := 0; i < 20; i++ {
		assert.True(t, issue(l))
	}
	assert.False(t, l.Allow())
	assert.Equal(t, 10*time.Second, l.TimeUntilAllowed())

	clock.advance(10*time.Second + time.Millisecond)
	assert.True(t, l.Allow())
	assert.Equal(t, time.Duration(0), l.TimeUntilAllowed())
}

func TestTimeUntilAllowedSustained(t *testing.T) {
	l, clock := newTestLimiter()
	for i := 0; i < 60; i++ {
		assert.True(t, issue(l))
		clock.advance(time.Second)
	}
	// Oldest entry was recorded 60s ago exactly and is now outside the window.
	assert.True(t, l.Allow())

	clock.t = clock.t.Add(-time.Second)
	assert.False(t, l.Allow())
	assert.Equal(t, time.Second, l.TimeUntilAllowed())
	assert.Equal(t, 60, l.CurrentRate())
}

func TestRecordPrunesOldEntries(t *testing.T) {
	l, clock := newTestLimiter()
	for i := 0; i < 10; i++ {
		l.Record()
	}
	clock.advance(61 * time.Second)
	l.Record()
	assert.Equal(t, 1, l.CurrentRate())
	assert.Len(t, l.issued, 1)
}
