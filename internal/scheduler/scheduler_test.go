package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homecore/internal/models"
)

type staticSource struct {
	schedules []models.Schedule
	err       error
}

func (s *staticSource) GetAllSchedules(ctx context.Context) ([]models.Schedule, error) {
	return s.schedules, s.err
}

type enqueued struct {
	scheduleID string
	cmd        models.PendingCommand
}

type recordingEnqueuer struct {
	mu  sync.Mutex
	got []enqueued
}

func (r *recordingEnqueuer) EnqueueCommand(ctx context.Context, cmd models.PendingCommand, scheduleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, enqueued{scheduleID: scheduleID, cmd: cmd})
	return nil
}

func schedule(id, expr string, enabled bool) models.Schedule {
	return models.Schedule{
		ID:             id,
		Name:           id,
		CronExpression: expr,
		Enabled:        enabled,
		Command:        models.PendingCommand{Kind: models.CommandExecuteScene, SceneID: "scene-" + id},
	}
}

func TestLoadSchedules(t *testing.T) {
	src := &staticSource{schedules: []models.Schedule{
		schedule("morning", "0 7 * * *", true),
		schedule("night", "30 22 * * *", true),
		schedule("off", "0 12 * * *", false),
		schedule("broken", "not a cron", true),
	}}
	s := NewScheduler(src, &recordingEnqueuer{})

	require.NoError(t, s.LoadSchedules(context.Background()))
	assert.Equal(t, 2, s.GetScheduledJobCount())
}

func TestLoadSchedules_SourceError(t *testing.T) {
	s := NewScheduler(&staticSource{err: errors.New("db down")}, &recordingEnqueuer{})
	assert.Error(t, s.LoadSchedules(context.Background()))
}

func TestTriggerEnqueuesCommand(t *testing.T) {
	enq := &recordingEnqueuer{}
	s := NewScheduler(&staticSource{schedules: []models.Schedule{schedule("morning", "0 7 * * *", true)}}, enq)
	require.NoError(t, s.LoadSchedules(context.Background()))

	require.True(t, s.runNow("morning"))
	require.Len(t, enq.got, 1)
	assert.Equal(t, "morning", enq.got[0].scheduleID)
	assert.Equal(t, "scene-morning", enq.got[0].cmd.SceneID)
}

func TestAddOrUpdateAndRemove(t *testing.T) {
	s := NewScheduler(&staticSource{}, &recordingEnqueuer{})

	require.NoError(t, s.AddOrUpdateSchedule(schedule("a", "@hourly", true)))
	require.NoError(t, s.AddOrUpdateSchedule(schedule("a", "@daily", true)))
	assert.Equal(t, 1, s.GetScheduledJobCount())

	require.NoError(t, s.AddOrUpdateSchedule(schedule("a", "@daily", false)))
	assert.Zero(t, s.GetScheduledJobCount())

	bad := schedule("b", "@daily", true)
	bad.Command = models.PendingCommand{Kind: models.CommandToggleDevice}
	assert.ErrorIs(t, s.AddOrUpdateSchedule(bad), models.ErrInvalidCommand)

	require.NoError(t, s.AddOrUpdateSchedule(schedule("c", "@daily", true)))
	s.RemoveSchedule("c")
	assert.False(t, s.runNow("c"))
}

func TestReloadSchedules(t *testing.T) {
	src := &staticSource{schedules: []models.Schedule{schedule("a", "@hourly", true)}}
	s := NewScheduler(src, &recordingEnqueuer{})
	require.NoError(t, s.LoadSchedules(context.Background()))

	src.schedules = []models.Schedule{schedule("b", "@hourly", true), schedule("c", "@hourly", true)}
	require.NoError(t, s.ReloadSchedules(context.Background()))
	assert.Equal(t, 2, s.GetScheduledJobCount())
	assert.False(t, s.runNow("a"))
}
