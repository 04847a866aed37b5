// Package dispatch is the single entry point for device commands. It gates
// commands through the rate limiter, applies them with retries, queues the
// ones that failed for connectivity reasons and replays them once the
// control channel is back.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"homecore/internal/device"
	"homecore/internal/models"
	"homecore/internal/queue"
	"homecore/internal/ratelimit"
	"homecore/internal/retry"
	"homecore/internal/scene"
	"homecore/internal/utils"
)

// Config holds the status display and cache tunables
type Config struct {
	ToggleTTL  time.Duration // success of a simple command stays visible this long
	FailureTTL time.Duration // queued and failed results stay visible this long
	StaleAfter time.Duration
}

// DefaultConfig returns 2s/5s status lifetimes and a 5 minute staleness bound
func DefaultConfig() Config {
	return Config{ToggleTTL: 2 * time.Second, FailureTTL: 5 * time.Second, StaleAfter: 5 * time.Minute}
}

// CommandLog records every finished command
type CommandLog interface {
	LogCommand(ctx context.Context, rec models.CommandRecord) error
}

// Metrics receives command outcomes
type Metrics interface {
	CommandFinished(kind models.CommandKind, status string, attempts int)
	StaleDropped(n int)
}

// Deps are the collaborators of a Dispatcher. Limiter, Retry, Queue, Scenes,
// Directory and Writer are required.
type Deps struct {
	Limiter   *ratelimit.Limiter
	Retry     *retry.Coordinator
	Queue     *queue.Queue
	Scenes    *scene.Controller
	Directory device.Directory
	Writer    device.Writer

	Poster     scene.Poster
	CommandLog CommandLog
	Metrics    Metrics
	Now        func() time.Time
}

// Dispatcher executes commands. Execute is safe for concurrent use;
// connectivity transitions are handled one at a time by Run.
type Dispatcher struct {
	cfg     Config
	limiter *ratelimit.Limiter
	retry   *retry.Coordinator
	queue   *queue.Queue
	scenes  *scene.Controller
	dir     device.Directory
	writer  device.Writer
	poster  scene.Poster
	cmdLog  CommandLog
	metrics Metrics
	now     func() time.Time
	log     zerolog.Logger

	// gate makes the limiter check and the issuance record one step
	gate sync.Mutex

	mu     sync.Mutex
	online bool
	cache  *accessoryCache
}

// New creates a dispatcher. It starts offline until Run sees an online event.
func New(cfg Config, deps Deps) *Dispatcher {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		cfg:     cfg,
		limiter: deps.Limiter,
		retry:   deps.Retry,
		queue:   deps.Queue,
		scenes:  deps.Scenes,
		dir:     deps.Directory,
		writer:  deps.Writer,
		poster:  deps.Poster,
		cmdLog:  deps.CommandLog,
		metrics: deps.Metrics,
		now:     now,
		log:     utils.Component("dispatch"),
		cache:   newAccessoryCache(cfg.StaleAfter),
	}
}

// Execute runs one command and reports what happened to it
func (d *Dispatcher) Execute(ctx context.Context, cmd models.PendingCommand) Result {
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	if cmd.CreatedAt.IsZero() {
		cmd.CreatedAt = d.now()
	}

	res := d.execute(ctx, cmd)
	res.CommandID = cmd.ID
	d.finish(ctx, cmd, res)
	return res
}

func (d *Dispatcher) execute(ctx context.Context, cmd models.PendingCommand) Result {
	if err := cmd.Validate(); err != nil {
		return Result{Status: StatusFailed, Message: failedMessage(cmd, err), Err: err}
	}

	d.gate.Lock()
	if !d.limiter.Allow() {
		wait := d.limiter.TimeUntilAllowed()
		d.gate.Unlock()
		return Result{Status: StatusRateLimited, RetryAfter: wait, Message: rateLimitedMessage(wait)}
	}
	d.limiter.Record()
	d.gate.Unlock()

	var (
		attempts int
		err      error
		outcome  *models.SceneOutcome
	)
	if cmd.Kind == models.CommandExecuteScene {
		// the scene controller retries its own write and verifies reachability
		out, serr := d.scenes.Execute(ctx, cmd.SceneID)
		outcome, attempts, err = &out, out.Attempts, serr
	} else {
		o := d.retry.Do(ctx, func(ctx context.Context) error { return d.apply(ctx, cmd) })
		attempts, err = o.Attempts, o.Err
	}

	res := Result{Attempts: attempts, Scene: outcome, Err: err}
	switch {
	case err == nil:
		if outcome != nil {
			d.cacheScene(*outcome)
		}
		res.Status = StatusSucceeded
		res.Message = d.successMessage(cmd, outcome)
	case device.IsConnectivity(err) && ctx.Err() == nil:
		if _, qerr := d.queue.Enqueue(ctx, cmd); qerr != nil {
			d.log.Error().Err(qerr).Str("command_id", cmd.ID).Msg("failed to persist queued command")
		}
		res.Status = StatusQueued
		res.Message = queuedMessage(cmd)
	default:
		res.Status = StatusFailed
		res.Message = failedMessage(cmd, err)
	}
	return res
}

// apply performs one attempt of a device command and updates the cache on success
func (d *Dispatcher) apply(ctx context.Context, cmd models.PendingCommand) error {
	switch cmd.Kind {
	case models.CommandToggleDevice:
		dev, err := d.dir.Device(ctx, cmd.DeviceID)
		if err != nil {
			return err
		}
		on, _ := dev.Properties.Lookup(models.PropPower)
		next := !on.Truthy()
		if err := d.writer.Write(ctx, cmd.DeviceID, string(models.PropPower), models.Bool(next)); err != nil {
			return err
		}
		d.updateAccessory(cmd.DeviceID, func(s *models.CachedAccessoryState) {
			if dev.Name != "" {
				s.Name = dev.Name
			}
			s.PowerState = next
			s.Reachable = true
		})
		return nil

	case models.CommandSetCharacteristic:
		if err := d.writer.Write(ctx, cmd.DeviceID, cmd.Characteristic, *cmd.Value); err != nil {
			return err
		}
		d.updateAccessory(cmd.DeviceID, func(s *models.CachedAccessoryState) {
			if p, ok := models.ParseProperty(cmd.Characteristic); ok && p == models.PropPower {
				s.PowerState = cmd.Value.Truthy()
			}
			s.Reachable = true
		})
		return nil

	case models.CommandExecuteScene:
		out, err := d.scenes.Replay(ctx, cmd.SceneID)
		if err != nil {
			return err
		}
		d.cacheScene(out)
		return nil
	}
	return fmt.Errorf("%w: unknown kind %q", models.ErrInvalidCommand, cmd.Kind)
}

func (d *Dispatcher) successMessage(cmd models.PendingCommand, outcome *models.SceneOutcome) string {
	switch cmd.Kind {
	case models.CommandExecuteScene:
		return outcome.Message
	case models.CommandToggleDevice:
		name, state := cmd.DeviceID, "off"
		if a, ok := d.Accessory(cmd.DeviceID); ok {
			if a.Name != "" {
				name = a.Name
			}
			if a.PowerState {
				state = "on"
			}
		}
		return fmt.Sprintf("Turned %s %s", name, state)
	}
	return fmt.Sprintf("Set %s on %s to %s", cmd.Characteristic, cmd.DeviceID, cmd.Value)
}

func (d *Dispatcher) cacheScene(out models.SceneOutcome) {
	failed := make(map[string]bool, len(out.Failed))
	for _, id := range out.Failed {
		failed[id] = true
	}
	for _, id := range out.Targets {
		reachable := !failed[id]
		d.updateAccessory(id, func(s *models.CachedAccessoryState) { s.Reachable = reachable })
	}
}

// finish reports a result to the status board, the command log, metrics and,
// for failures, the notification history
func (d *Dispatcher) finish(ctx context.Context, cmd models.PendingCommand, res Result) {
	ev := d.log.Info()
	if res.Status != StatusSucceeded {
		ev = d.log.Warn().AnErr("error", res.Err)
	}
	ev.Str("command_id", cmd.ID).
		Str("kind", string(cmd.Kind)).
		Str("target", cmd.Target()).
		Str("status", string(res.Status)).
		Int("attempts", res.Attempts).
		Msg(res.Message)

	// scenes report their own terminal status unless the write never reached the hub
	sceneReported := res.Scene != nil && !device.IsConnectivity(res.Scene.Err)
	if !sceneReported {
		ttl := d.cfg.FailureTTL
		if res.Status == StatusSucceeded {
			ttl = d.cfg.ToggleTTL
		}
		d.scenes.Status().Show(res.Message, ttl)
	}

	if d.metrics != nil {
		d.metrics.CommandFinished(cmd.Kind, string(res.Status), res.Attempts)
	}

	if d.cmdLog != nil {
		rec := models.CommandRecord{
			CommandID: cmd.ID,
			Kind:      cmd.Kind,
			Target:    cmd.Target(),
			Status:    string(res.Status),
			Message:   res.Message,
			Attempts:  res.Attempts,
			At:        d.now(),
		}
		if err := d.cmdLog.LogCommand(context.WithoutCancel(ctx), rec); err != nil {
			d.log.Error().Err(err).Str("command_id", cmd.ID).Msg("failed to write command log")
		}
	}

	// reported scene failures already raised a scene notification
	if res.Status == StatusFailed && d.poster != nil && !sceneReported {
		d.poster.Post(context.WithoutCancel(ctx), models.HomeNotification{
			Kind:     models.NotifyCommandFailed,
			Title:    "Command failed",
			Body:     res.Message,
			Priority: models.PriorityNormal,
			DeviceID: cmd.DeviceID,
			Metadata: map[string]string{
				"command_id": cmd.ID,
				"kind":       string(cmd.Kind),
				"reason":     string(device.ReasonOf(res.Err)),
			},
		})
	}
}

func (d *Dispatcher) updateAccessory(id string, fn func(*models.CachedAccessoryState)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache.update(id, d.now(), fn)
}

// Accessory returns the cached state of one device
func (d *Dispatcher) Accessory(id string) (Accessory, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cache.get(id, d.now())
}

// Accessories returns every cached device ordered by ID
func (d *Dispatcher) Accessories() []Accessory {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cache.all(d.now())
}

// Online reports the last connectivity state seen by Run
func (d *Dispatcher) Online() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.online
}

// CurrentRate is the number of commands issued in the trailing rate window
func (d *Dispatcher) CurrentRate() int {
	return d.limiter.CurrentRate()
}

// StatusMessage is the status line currently shown to the user
func (d *Dispatcher) StatusMessage() string {
	return d.scenes.Status().Current()
}

// Pending returns the commands waiting for the control channel
func (d *Dispatcher) Pending() []models.PendingCommand {
	return d.queue.Items()
}
