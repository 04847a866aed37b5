package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"homecore/internal/models"
	"homecore/internal/utils"
)

// TypeExecuteCommand runs one command through the dispatcher
const TypeExecuteCommand = "execute_command"

// CommandTaskPayload is the payload of an execute_command task
type CommandTaskPayload struct {
	Command    models.PendingCommand `json:"command"`
	ScheduleID string                `json:"schedule_id,omitempty"`
}

// NewCommandTask builds an execute_command task. The command gets a fresh ID
// so every trigger of a schedule is a distinct command.
func NewCommandTask(cmd models.PendingCommand, scheduleID string) (*asynq.Task, error) {
	cmd.ID = uuid.NewString()
	cmd.CreatedAt = time.Time{}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(CommandTaskPayload{Command: cmd, ScheduleID: scheduleID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeExecuteCommand, payload, asynq.MaxRetry(5), asynq.Timeout(time.Minute)), nil
}

// Client enqueues tasks
type Client struct {
	client *asynq.Client
	log    zerolog.Logger
}

// NewClient creates a task client using the Redis server at redisAddr
func NewClient(redisAddr string) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}),
		log:    utils.Component("taskqueue"),
	}
}

// EnqueueCommand schedules cmd for execution by a worker
func (c *Client) EnqueueCommand(ctx context.Context, cmd models.PendingCommand, scheduleID string) error {
	task, err := NewCommandTask(cmd, scheduleID)
	if err != nil {
		return fmt.Errorf("build command task: %w", err)
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.log.Error().Err(err).Str("schedule_id", scheduleID).Msg("failed to enqueue command")
		return err
	}
	c.log.Info().Str("task_id", info.ID).Str("kind", string(cmd.Kind)).Str("target", cmd.Target()).Msg("command enqueued")
	return nil
}

// Close releases the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}
