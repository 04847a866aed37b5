package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homecore/internal/dispatch"
	"homecore/internal/models"
)

type stubExecutor struct {
	result dispatch.Result
	got    []models.PendingCommand
}

func (s *stubExecutor) Execute(ctx context.Context, cmd models.PendingCommand) dispatch.Result {
	s.got = append(s.got, cmd)
	return s.result
}

func toggleTask(t *testing.T) *asynq.Task {
	t.Helper()
	task, err := NewCommandTask(models.PendingCommand{Kind: models.CommandToggleDevice, DeviceID: "lamp"}, "morning")
	require.NoError(t, err)
	return task
}

func TestNewCommandTask(t *testing.T) {
	task := toggleTask(t)
	assert.Equal(t, TypeExecuteCommand, task.Type())

	var p CommandTaskPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, "morning", p.ScheduleID)
	assert.NotEmpty(t, p.Command.ID)
	assert.True(t, p.Command.CreatedAt.IsZero(), "creation time is set when the command runs")

	_, err := NewCommandTask(models.PendingCommand{Kind: models.CommandToggleDevice}, "")
	assert.ErrorIs(t, err, models.ErrInvalidCommand)
}

func TestHandleCommandTask(t *testing.T) {
	tests := []struct {
		name      string
		result    dispatch.Result
		wantErr   bool
		skipRetry bool
	}{
		{name: "succeeded", result: dispatch.Result{Status: dispatch.StatusSucceeded}},
		{name: "queued", result: dispatch.Result{Status: dispatch.StatusQueued}},
		{name: "rate limited", result: dispatch.Result{Status: dispatch.StatusRateLimited, RetryAfter: 4 * time.Second}, wantErr: true},
		{name: "failed", result: dispatch.Result{Status: dispatch.StatusFailed, Message: "nope"}, wantErr: true, skipRetry: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &stubExecutor{result: tt.result}
			err := HandleCommandTask(exec)(context.Background(), toggleTask(t))

			require.Len(t, exec.got, 1)
			assert.Equal(t, "lamp", exec.got[0].DeviceID)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestHandleCommandTask_BadPayload(t *testing.T) {
	exec := &stubExecutor{}
	err := HandleCommandTask(exec)(context.Background(), asynq.NewTask(TypeExecuteCommand, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, exec.got)
}

func TestRetryDelayHonoursRateLimit(t *testing.T) {
	task := toggleTask(t)
	assert.Equal(t, 7*time.Second, retryDelay(1, &RateLimitedError{RetryAfter: 7 * time.Second}, task))
	assert.Positive(t, retryDelay(1, errors.New("other"), task))
}
