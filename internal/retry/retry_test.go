package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homecore/internal/device"
)

var errUnreachable = device.NewError(device.ReasonUnreachable, "lamp", errors.New("no response"))

func TestSucceedsFirstTry(t *testing.T) {
	c := New(3, time.Millisecond)
	out := c.Do(context.Background(), func(ctx context.Context) error { return nil })
	assert.True(t, out.OK())
	assert.Equal(t, 1, out.Attempts)
}

func TestSucceedsAfterTransientFailure(t *testing.T) {
	c := New(3, time.Millisecond)
	calls := 0
	out := c.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errUnreachable
		}
		return nil
	})
	assert.True(t, out.OK())
	assert.Equal(t, 2, out.Attempts)
}

func TestThreeTransientFailuresGiveExactlyThreeAttempts(t *testing.T) {
	delay := 20 * time.Millisecond
	c := New(3, delay)

	var mu sync.Mutex
	var at []time.Time
	out := c.Do(context.Background(), func(ctx context.Context) error {
		mu.Lock()
		at = append(at, time.Now())
		mu.Unlock()
		return errUnreachable
	})

	require.False(t, out.OK())
	assert.Equal(t, 3, out.Attempts)
	assert.ErrorIs(t, out.Err, errUnreachable)
	assert.False(t, out.Cancelled)
	require.Len(t, at, 3)
	for i := 1; i < len(at); i++ {
		assert.GreaterOrEqual(t, at[i].Sub(at[i-1]), delay)
	}
}

func TestAttemptCountIsPerCall(t *testing.T) {
	c := New(3, time.Millisecond)
	fail := func(ctx context.Context) error { return errUnreachable }
	assert.Equal(t, 3, c.Do(context.Background(), fail).Attempts)
	assert.Equal(t, 3, c.Do(context.Background(), fail).Attempts)
}

func TestPermanentErrorIsNotRetried(t *testing.T) {
	c := New(3, time.Millisecond)
	calls := 0
	out := c.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return device.NewError(device.ReasonUnsupported, "lamp", nil)
	})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, out.Attempts)
	assert.True(t, device.IsPermanent(out.Err))
}

func TestCancelDuringDelayAbortsWithoutAnotherAttempt(t *testing.T) {
	c := New(3, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan Outcome, 1)
	go func() {
		done <- c.Do(ctx, func(ctx context.Context) error {
			calls++
			return errUnreachable
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case out := <-done:
		assert.True(t, out.Cancelled)
		assert.Equal(t, 1, out.Attempts)
		assert.ErrorIs(t, out.Err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancel")
	}
}

func TestAlreadyCancelledContextMakesNoAttempt(t *testing.T) {
	c := New(3, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := c.Do(ctx, func(ctx context.Context) error { return nil })
	assert.Equal(t, 0, out.Attempts)
	assert.True(t, out.Cancelled)
}
