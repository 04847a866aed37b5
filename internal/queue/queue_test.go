package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homecore/internal/device"
	"homecore/internal/models"
	"homecore/internal/retry"
	"homecore/internal/store"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestQueue() (*Queue, *store.Memory, *clock) {
	c := &clock{t: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	st := store.NewMemory()
	return New(DefaultConfig(), st, retry.New(3, time.Millisecond), c.now), st, c
}

func command(id string, created time.Time) models.PendingCommand {
	return models.PendingCommand{
		ID:        id,
		CreatedAt: created,
		Kind:      models.CommandToggleDevice,
		DeviceID:  "lamp-" + id,
	}
}

func ids(items []models.PendingCommand) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestEnqueuePersistsEveryMutation(t *testing.T) {
	q, st, c := newTestQueue()
	ctx := context.Background()

	_, err := q.Enqueue(ctx, command("a", c.t))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, command("b", c.t))
	require.NoError(t, err)
	assert.Equal(t, 2, st.Saves(store.TableQueue))

	var saved []models.PendingCommand
	found, err := st.Load(ctx, store.TableQueue, &saved)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"a", "b"}, ids(saved))
}

func TestEnqueueEvictsOldestBeyondCapacity(t *testing.T) {
	q, _, c := newTestQueue()
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		evicted, err := q.Enqueue(ctx, command(fmt.Sprint(i), c.t))
		require.NoError(t, err)
		assert.Nil(t, evicted)
	}
	evicted, err := q.Enqueue(ctx, command("50", c.t))
	require.NoError(t, err)
	require.NotNil(t, evicted)
	assert.Equal(t, "0", evicted.ID)
	assert.Equal(t, 50, q.Len())

	items := q.Items()
	assert.Equal(t, "1", items[0].ID)
	assert.Equal(t, "50", items[49].ID)

	for i := 51; i < 80; i++ {
		_, _ = q.Enqueue(ctx, command(fmt.Sprint(i), c.t))
		assert.LessOrEqual(t, q.Len(), 50)
	}
}

func TestDrainOfflineIsNoop(t *testing.T) {
	q, _, c := newTestQueue()
	_, _ = q.Enqueue(context.Background(), command("a", c.t))

	called := false
	report := q.Drain(context.Background(), false, func(ctx context.Context, cmd models.PendingCommand) error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.Empty(t, report.Executed)
	assert.Equal(t, 1, q.Len())
}

func TestDrainExecutesInInsertionOrder(t *testing.T) {
	q, st, c := newTestQueue()
	ctx := context.Background()
	for _, id := range []string{"first", "second", "third"} {
		_, _ = q.Enqueue(ctx, command(id, c.t))
		c.t = c.t.Add(time.Second)
	}

	var order []string
	report := q.Drain(ctx, true, func(ctx context.Context, cmd models.PendingCommand) error {
		order = append(order, cmd.ID)
		return nil
	})

	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.Equal(t, []string{"first", "second", "third"}, report.Executed)
	assert.Equal(t, 0, q.Len())
	assert.JSONEq(t, `[]`, string(st.Raw(store.TableQueue)))
}

func TestDrainDropsStaleCommandsWithoutAttempt(t *testing.T) {
	q, _, c := newTestQueue()
	ctx := context.Background()
	start := c.t
	_, _ = q.Enqueue(ctx, command("stale", start))
	_, _ = q.Enqueue(ctx, command("fresh", start.Add(20*time.Second)))
	c.t = start.Add(31 * time.Second)

	var attempted []string
	report := q.Drain(ctx, true, func(ctx context.Context, cmd models.PendingCommand) error {
		attempted = append(attempted, cmd.ID)
		return nil
	})

	assert.Equal(t, []string{"fresh"}, attempted)
	assert.Equal(t, []string{"stale"}, report.Dropped)
	assert.Equal(t, []string{"fresh"}, report.Executed)
	assert.Empty(t, report.Failed)
	assert.Equal(t, 0, q.Len())
}

func TestDrainKeepsFailuresInPlace(t *testing.T) {
	q, _, c := newTestQueue()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_, _ = q.Enqueue(ctx, command(id, c.t))
	}

	attempts := map[string]int{}
	unreachable := device.NewError(device.ReasonUnreachable, "lamp-b", errors.New("timeout"))
	report := q.Drain(ctx, true, func(ctx context.Context, cmd models.PendingCommand) error {
		attempts[cmd.ID]++
		if cmd.ID == "b" {
			return unreachable
		}
		return nil
	})

	assert.Equal(t, []string{"a", "c"}, report.Executed)
	assert.Equal(t, []string{"b"}, report.Failed)
	assert.Equal(t, 3, attempts["b"])
	assert.Equal(t, 1, attempts["a"])
	assert.Equal(t, []string{"b"}, ids(q.Items()))
}

func TestDrainCancelledLeavesInFlightCommandQueuedOnce(t *testing.T) {
	c := &clock{t: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	q := New(DefaultConfig(), store.NewMemory(), retry.New(3, time.Hour), c.now)
	ctx, cancel := context.WithCancel(context.Background())
	_, _ = q.Enqueue(ctx, command("a", c.t))
	_, _ = q.Enqueue(ctx, command("b", c.t))

	done := make(chan DrainReport, 1)
	go func() {
		done <- q.Drain(ctx, true, func(ctx context.Context, cmd models.PendingCommand) error {
			return device.NewError(device.ReasonOffline, cmd.DeviceID, nil)
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case report := <-done:
		assert.True(t, report.Cancelled)
		assert.Empty(t, report.Executed)
	case <-time.After(time.Second):
		t.Fatal("drain did not stop after cancel")
	}
	assert.Equal(t, []string{"a", "b"}, ids(q.Items()))
}

func TestCommandsEnqueuedDuringDrainAreKept(t *testing.T) {
	q, _, c := newTestQueue()
	ctx := context.Background()
	_, _ = q.Enqueue(ctx, command("a", c.t))

	report := q.Drain(ctx, true, func(ctx context.Context, cmd models.PendingCommand) error {
		_, _ = q.Enqueue(ctx, command("late", c.t))
		return nil
	})
	assert.Equal(t, []string{"a"}, report.Executed)
	assert.Equal(t, []string{"late"}, ids(q.Items()))
}

func TestLoadRestoresPersistedQueue(t *testing.T) {
	q, st, c := newTestQueue()
	ctx := context.Background()
	_, _ = q.Enqueue(ctx, command("a", c.t))
	_, _ = q.Enqueue(ctx, command("b", c.t))

	restored := New(DefaultConfig(), st, retry.New(3, time.Millisecond), c.now)
	require.NoError(t, restored.Load(ctx))
	assert.Equal(t, []string{"a", "b"}, ids(restored.Items()))
}

func TestRemoveAndClear(t *testing.T) {
	q, _, c := newTestQueue()
	ctx := context.Background()
	_, _ = q.Enqueue(ctx, command("a", c.t))
	_, _ = q.Enqueue(ctx, command("b", c.t))

	removed, err := q.Remove(ctx, "a")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = q.Remove(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, q.Clear(ctx))
	assert.Equal(t, 0, q.Len())
}

func TestOnChangeReportsDepth(t *testing.T) {
	q, _, c := newTestQueue()
	var depths []int
	q.OnChange = func(depth int) { depths = append(depths, depth) }
	_, _ = q.Enqueue(context.Background(), command("a", c.t))
	_, _ = q.Remove(context.Background(), "a")
	assert.Equal(t, []int{1, 0}, depths)
}
