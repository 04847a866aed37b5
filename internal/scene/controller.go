// Package scene runs scenes with an optimistic write followed by a
// reachability check of every targeted device.
package scene

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"homecore/internal/device"
	"homecore/internal/models"
	"homecore/internal/retry"
	"homecore/internal/utils"
)

// Config controls the verification delay and how long terminal statuses stay visible
type Config struct {
	Grace       time.Duration
	TerminalTTL time.Duration
}

// DefaultConfig waits 1.5s before verifying and shows the result for 5s
func DefaultConfig() Config {
	return Config{Grace: 1500 * time.Millisecond, TerminalTTL: 5 * time.Second}
}

// Poster records a notification raised outside the rule engine
type Poster interface {
	Post(ctx context.Context, n models.HomeNotification) models.HomeNotification
}

// Controller executes scenes
type Controller struct {
	cfg    Config
	dir    device.Directory
	writer device.Writer
	status *StatusBoard
	poster Poster
	retry  *retry.Coordinator
	log    zerolog.Logger
}

// NewController creates a controller. status may be shared with the dispatcher; nil creates one.
func NewController(cfg Config, dir device.Directory, w device.Writer, status *StatusBoard) *Controller {
	if status == nil {
		status = NewStatusBoard()
	}
	return &Controller{
		cfg:    cfg,
		dir:    dir,
		writer: w,
		status: status,
		log:    utils.Component("scene"),
	}
}

// SetPoster enables scene_executed notifications
func (c *Controller) SetPoster(p Poster) {
	c.poster = p
}

// SetRetry makes Execute retry a failing scene write with rc
func (c *Controller) SetRetry(rc *retry.Coordinator) {
	c.retry = rc
}

// Status returns the board the controller reports to
func (c *Controller) Status() *StatusBoard {
	return c.status
}

// Execute writes the scene and classifies the result. The returned error is
// the outcome's Err and is only set for a failure.
func (c *Controller) Execute(ctx context.Context, sceneID string) (models.SceneOutcome, error) {
	return c.run(ctx, sceneID, c.retry)
}

// Replay is Execute with a single write attempt, for callers that already retry
func (c *Controller) Replay(ctx context.Context, sceneID string) (models.SceneOutcome, error) {
	return c.run(ctx, sceneID, nil)
}

func (c *Controller) write(ctx context.Context, sceneID string, rc *retry.Coordinator) (int, error) {
	if rc == nil {
		return 1, c.writer.WriteScene(ctx, sceneID)
	}
	res := rc.Do(ctx, func(ctx context.Context) error { return c.writer.WriteScene(ctx, sceneID) })
	return res.Attempts, res.Err
}

func (c *Controller) run(ctx context.Context, sceneID string, rc *retry.Coordinator) (models.SceneOutcome, error) {
	out := models.SceneOutcome{SceneID: sceneID}

	targets, err := c.dir.SceneTargets(ctx, sceneID)
	if err != nil {
		out = c.fail(ctx, out, fmt.Errorf("resolve scene %s: %w", sceneID, err))
		return out, out.Err
	}
	out.Targets = targets

	running := fmt.Sprintf("Running scene %s...", sceneID)
	c.status.Show(running, 0)
	attempts, err := c.write(ctx, sceneID, rc)
	out.Attempts = attempts
	if err != nil && device.IsConnectivity(err) {
		// the caller decides between queueing and surfacing this one
		c.status.ClearIf(running)
		c.log.Warn().Err(err).Str("scene_id", sceneID).Int("attempts", attempts).Msg("scene write did not reach the hub")
		out = c.unsent(out, err)
		return out, out.Err
	}
	if err != nil {
		out = c.fail(ctx, out, err)
		return out, out.Err
	}

	if err := wait(ctx, c.cfg.Grace); err != nil {
		out = c.fail(ctx, out, err)
		return out, out.Err
	}

	for _, id := range targets {
		d, err := c.dir.Device(ctx, id)
		if err != nil || !d.Reachable {
			out.Failed = append(out.Failed, id)
		}
	}

	if len(out.Failed) == 0 {
		out.Status = models.SceneSuccess
		out.Message = fmt.Sprintf("Scene %s executed on %d devices", sceneID, len(targets))
	} else {
		out.Status = models.ScenePartial
		out.Message = fmt.Sprintf("Scene %s partially executed: %d of %d devices did not respond (%s)",
			sceneID, len(out.Failed), len(targets), strings.Join(out.Failed, ", "))
	}
	c.finish(ctx, out)
	return out, nil
}

// unsent marks every target failed without reporting the outcome
func (c *Controller) unsent(out models.SceneOutcome, err error) models.SceneOutcome {
	out.Status = models.SceneFailure
	out.Failed = append([]string(nil), out.Targets...)
	out.Err = err
	out.Message = fmt.Sprintf("Scene %s failed: %v", out.SceneID, err)
	return out
}

func (c *Controller) fail(ctx context.Context, out models.SceneOutcome, err error) models.SceneOutcome {
	out = c.unsent(out, err)
	c.finish(ctx, out)
	return out
}

func (c *Controller) finish(ctx context.Context, out models.SceneOutcome) {
	c.status.Show(out.Message, c.cfg.TerminalTTL)

	ev := c.log.Info()
	if out.Status != models.SceneSuccess {
		ev = c.log.Warn().Strs("failed", out.Failed)
	}
	ev.Str("scene_id", out.SceneID).Str("status", string(out.Status)).Msg(out.Message)

	if c.poster == nil {
		return
	}
	priority := models.PriorityLow
	if out.Status != models.SceneSuccess {
		priority = models.PriorityHigh
	}
	c.poster.Post(context.WithoutCancel(ctx), models.HomeNotification{
		Kind:     models.NotifySceneExecuted,
		Title:    "Scene executed",
		Body:     out.Message,
		Priority: priority,
		Metadata: map[string]string{
			"scene_id": out.SceneID,
			"status":   string(out.Status),
		},
	})
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
