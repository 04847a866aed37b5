package scene

import (
	"sync"
	"time"
)

// StatusBoard holds the single user-visible status line. A message shown
// with a TTL clears itself unless a newer message replaced it first.
type StatusBoard struct {
	mu      sync.Mutex
	message string
	gen     uint64
	timer   *time.Timer
}

// NewStatusBoard creates an empty board
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{}
}

// Show replaces the current message. ttl <= 0 keeps it until replaced.
func (b *StatusBoard) Show(msg string, ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	b.message = msg
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if ttl <= 0 {
		return
	}
	gen := b.gen
	b.timer = time.AfterFunc(ttl, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.gen == gen {
			b.message = ""
			b.timer = nil
		}
	})
}

// Current returns the visible message, empty when nothing is shown
func (b *StatusBoard) Current() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.message
}

// Clear removes the message immediately
func (b *StatusBoard) Clear() {
	b.Show("", 0)
}

// ClearIf removes the message only if it is still msg
func (b *StatusBoard) ClearIf(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.message != msg {
		return
	}
	b.gen++
	b.message = ""
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
