// Package queue holds commands that could not be delivered while the control
// channel was down and replays them, oldest first, once it comes back.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"homecore/internal/models"
	"homecore/internal/retry"
	"homecore/internal/store"
	"homecore/internal/utils"
)

// Config bounds the queue
type Config struct {
	Capacity int           // oldest entry is evicted beyond this
	Timeout  time.Duration // entries older than this are dropped unexecuted
}

// DefaultConfig returns capacity 50 and a 30 second command timeout
func DefaultConfig() Config {
	return Config{Capacity: 50, Timeout: 30 * time.Second}
}

// ApplyFunc executes one queued command
type ApplyFunc func(ctx context.Context, cmd models.PendingCommand) error

// DrainReport lists command IDs by what happened to them during a drain
type DrainReport struct {
	Executed  []string
	Dropped   []string
	Failed    []string
	Cancelled bool
}

// Queue is a persisted FIFO of pending commands. Safe for concurrent use.
type Queue struct {
	cfg   Config
	store store.Store
	retry *retry.Coordinator
	now   func() time.Time
	log   zerolog.Logger

	mu       sync.Mutex
	items    []models.PendingCommand
	draining bool

	// OnChange, if set, is called with the new depth after every mutation.
	OnChange func(depth int)
}

// New creates an empty queue. A nil now uses time.Now.
func New(cfg Config, st store.Store, rc *retry.Coordinator, now func() time.Time) *Queue {
	if now == nil {
		now = time.Now
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	return &Queue{
		cfg:   cfg,
		store: st,
		retry: rc,
		now:   now,
		log:   utils.Component("queue"),
	}
}

// Load restores the queue from the store, trimming to capacity
func (q *Queue) Load(ctx context.Context) error {
	var items []models.PendingCommand
	found, err := q.store.Load(ctx, store.TableQueue, &items)
	if err != nil {
		return fmt.Errorf("load queue: %w", err)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if !found {
		q.items = nil
		return nil
	}
	if over := len(items) - q.cfg.Capacity; over > 0 {
		items = items[over:]
	}
	q.items = items
	q.log.Info().Int("pending", len(items)).Msg("restored offline queue")
	return nil
}

// persistLocked saves the current items. Caller holds q.mu.
func (q *Queue) persistLocked(ctx context.Context) error {
	snapshot := append([]models.PendingCommand{}, q.items...)
	if q.OnChange != nil {
		q.OnChange(len(snapshot))
	}
	if err := q.store.Save(ctx, store.TableQueue, snapshot); err != nil {
		q.log.Error().Err(err).Msg("failed to persist offline queue")
		return err
	}
	return nil
}

// Enqueue appends cmd, evicting the oldest entry when the queue is full.
// The evicted command, if any, is returned. A persistence error is returned
// but the command stays queued in memory.
func (q *Queue) Enqueue(ctx context.Context, cmd models.PendingCommand) (*models.PendingCommand, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, cmd)
	var evicted *models.PendingCommand
	if len(q.items) > q.cfg.Capacity {
		oldest := q.items[0]
		evicted = &oldest
		q.items = append(q.items[:0:0], q.items[1:]...)
		q.log.Warn().Str("command_id", oldest.ID).Int("capacity", q.cfg.Capacity).Msg("queue full, evicted oldest command")
	}
	q.log.Info().Str("command_id", cmd.ID).Str("kind", string(cmd.Kind)).Int("depth", len(q.items)).Msg("command queued")
	return evicted, q.persistLocked(ctx)
}

// Len returns the number of queued commands
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Items returns a copy of the queued commands in insertion order
func (q *Queue) Items() []models.PendingCommand {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]models.PendingCommand{}, q.items...)
}

// Remove deletes the command with id, reporting whether it was queued
func (q *Queue) Remove(ctx context.Context, id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.removeLocked(id) {
		return false, nil
	}
	return true, q.persistLocked(ctx)
}

// Clear empties the queue
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
	return q.persistLocked(ctx)
}

func (q *Queue) removeLocked(id string) bool {
	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// Drain replays queued commands in insertion order when online. Commands past
// the timeout are dropped without an attempt; each other command is applied
// through the retry coordinator. Successful commands are removed and failed
// ones stay queued in place. A drain already in progress makes this a no-op.
func (q *Queue) Drain(ctx context.Context, online bool, apply ApplyFunc) DrainReport {
	var report DrainReport
	if !online {
		return report
	}

	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return report
	}
	q.draining = true
	pending := append([]models.PendingCommand{}, q.items...)
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	if len(pending) > 0 {
		q.log.Info().Int("pending", len(pending)).Msg("draining offline queue")
	}

	for _, cmd := range pending {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}

		if cmd.Expired(q.now(), q.cfg.Timeout) {
			q.log.Info().Str("command_id", cmd.ID).Dur("age", cmd.Age(q.now())).Msg("dropping stale command")
			q.forget(ctx, cmd.ID)
			report.Dropped = append(report.Dropped, cmd.ID)
			continue
		}

		c := cmd
		out := q.retry.Do(ctx, func(ctx context.Context) error { return apply(ctx, c) })
		switch {
		case out.OK():
			q.forget(ctx, cmd.ID)
			report.Executed = append(report.Executed, cmd.ID)
		case out.Cancelled:
			report.Cancelled = true
		default:
			q.log.Warn().Err(out.Err).Str("command_id", cmd.ID).Int("attempts", out.Attempts).Msg("queued command still failing")
			report.Failed = append(report.Failed, cmd.ID)
		}
		if report.Cancelled {
			break
		}
	}
	return report
}

func (q *Queue) forget(ctx context.Context, id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.removeLocked(id) {
		// Persistence failures are logged by persistLocked; the in-memory queue stays authoritative.
		_ = q.persistLocked(context.WithoutCancel(ctx))
	}
}
