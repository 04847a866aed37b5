package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"homecore/internal/dispatch"
	"homecore/internal/models"
	"homecore/internal/utils"
)

// Executor runs commands
type Executor interface {
	Execute(ctx context.Context, cmd models.PendingCommand) dispatch.Result
}

// RateLimitedError asks asynq to retry once the limiter allows another command
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// Worker processes execute_command tasks
type Worker struct {
	srv *asynq.Server
	mux *asynq.ServeMux
	log zerolog.Logger
}

// NewWorker creates a worker pool against the Redis server at redisAddr
func NewWorker(redisAddr string, concurrency int, exec Executor) *Worker {
	log := utils.Component("taskqueue")
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeExecuteCommand, HandleCommandTask(exec))

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency:    concurrency,
		RetryDelayFunc: retryDelay,
		Logger:         asynqLogger{log: log},
	})
	return &Worker{srv: srv, mux: mux, log: log}
}

// Start begins processing in the background
func (w *Worker) Start() error {
	w.log.Info().Msg("starting workers")
	return w.srv.Start(w.mux)
}

// Stop waits for running tasks and stops the workers
func (w *Worker) Stop() {
	w.srv.Shutdown()
	w.log.Info().Msg("workers stopped")
}

func retryDelay(n int, err error, task *asynq.Task) time.Duration {
	var rl *RateLimitedError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}
	return asynq.DefaultRetryDelayFunc(n, err, task)
}

// HandleCommandTask returns the handler for execute_command tasks. Rate
// limited commands are retried by asynq; failed commands are not.
func HandleCommandTask(exec Executor) asynq.HandlerFunc {
	log := utils.Component("taskqueue")
	return func(ctx context.Context, t *asynq.Task) error {
		var p CommandTaskPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
		}

		res := exec.Execute(ctx, p.Command)
		log.Info().
			Str("command_id", res.CommandID).
			Str("schedule_id", p.ScheduleID).
			Str("status", string(res.Status)).
			Msg(res.Message)

		switch res.Status {
		case dispatch.StatusRateLimited:
			return &RateLimitedError{RetryAfter: res.RetryAfter}
		case dispatch.StatusFailed:
			return fmt.Errorf("%s: %w", res.Message, asynq.SkipRetry)
		}
		// queued commands are owned by the offline queue from here on
		return nil
	}
}

// asynqLogger routes asynq's internal logging through zerolog
type asynqLogger struct {
	log zerolog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug().Msg(fmt.Sprint(args...)) }

func (l asynqLogger) Info(args ...interface{}) { l.log.Info().Msg(fmt.Sprint(args...)) }

func (l asynqLogger) Warn(args ...interface{}) { l.log.Warn().Msg(fmt.Sprint(args...)) }

func (l asynqLogger) Error(args ...interface{}) { l.log.Error().Msg(fmt.Sprint(args...)) }

func (l asynqLogger) Fatal(args ...interface{}) { l.log.Fatal().Msg(fmt.Sprint(args...)) }
