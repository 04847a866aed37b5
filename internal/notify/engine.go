// Package notify owns notification rules and history. Each device state
// observation is checked against every enabled rule; matching rules whose
// cooldown has elapsed raise a HomeNotification.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"homecore/internal/condition"
	"homecore/internal/models"
	"homecore/internal/store"
	"homecore/internal/utils"
)

var (
	ErrRuleNotFound         = errors.New("notification rule not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidRule          = errors.New("invalid notification rule")
)

// Config tunes the engine
type Config struct {
	HistoryLimit int
}

// DefaultConfig keeps the 100 most recent notifications
func DefaultConfig() Config {
	return Config{HistoryLimit: 100}
}

// Observation is the current state of one device after a change
type Observation struct {
	DeviceID   string
	DeviceName string
	Properties models.PropertySet
}

// Engine evaluates rules against observations. Safe for concurrent use.
type Engine struct {
	cfg     Config
	store   store.Store
	deliver Deliverer
	now     func() time.Time
	log     zerolog.Logger

	mu      sync.Mutex
	rules   []models.NotificationRule
	history []models.HomeNotification

	// OnFire, if set, is called for every notification raised or posted.
	OnFire func(n models.HomeNotification)
}

// NewEngine creates an engine with no rules. Call Load to restore saved state.
func NewEngine(cfg Config, st store.Store, d Deliverer, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	if cfg.HistoryLimit < 1 {
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}
	if d == nil {
		d = NewLogDeliverer()
	}
	return &Engine{
		cfg:     cfg,
		store:   st,
		deliver: d,
		now:     now,
		log:     utils.Component("notify"),
	}
}

// Load restores rules and history. The default rule set is installed when no rules were saved.
func (e *Engine) Load(ctx context.Context) error {
	var rules []models.NotificationRule
	found, err := e.store.Load(ctx, store.TableRules, &rules)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	var history []models.HomeNotification
	if _, err := e.store.Load(ctx, store.TableHistory, &history); err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !found {
		rules = DefaultRules(e.now())
		e.log.Info().Int("rules", len(rules)).Msg("installing default notification rules")
	}
	e.rules = rules
	e.history = history
	e.trimHistoryLocked()
	if !found {
		return e.saveRulesLocked(ctx)
	}
	return nil
}

// Observe evaluates every enabled rule against obs and returns the notifications raised
func (e *Engine) Observe(ctx context.Context, obs Observation) []models.HomeNotification {
	now := e.now()

	e.mu.Lock()
	var fired []models.HomeNotification
	for i := range e.rules {
		r := &e.rules[i]
		if !r.Enabled || r.CoolingDown(now) || !r.AppliesTo(obs.DeviceID) {
			continue
		}
		if !condition.EvaluateSet(r.Condition, obs.Properties) {
			continue
		}
		n := e.fromRule(*r, obs, now)
		firedAt := now
		r.LastFired = &firedAt
		e.appendHistoryLocked(n)
		fired = append(fired, n)
		e.log.Info().Str("rule_id", r.ID).Str("device_id", obs.DeviceID).Msg("notification rule fired")
	}
	if len(fired) > 0 {
		_ = e.saveRulesLocked(ctx)
		_ = e.saveHistoryLocked(ctx)
	}
	e.mu.Unlock()

	for _, n := range fired {
		e.handOff(ctx, n)
	}
	return fired
}

func (e *Engine) fromRule(r models.NotificationRule, obs Observation, now time.Time) models.HomeNotification {
	subject := obs.DeviceName
	if subject == "" {
		subject = obs.DeviceID
	}
	body := r.Message
	if body == "" {
		body = r.Condition
	}
	if subject != "" {
		body = fmt.Sprintf("%s: %s", subject, body)
	}
	return models.HomeNotification{
		ID:         uuid.NewString(),
		Kind:       r.Kind,
		Title:      r.Name,
		Body:       body,
		Priority:   r.Priority,
		DeviceID:   obs.DeviceID,
		DeviceName: obs.DeviceName,
		Timestamp:  now,
		Metadata: map[string]string{
			"rule_id":   r.ID,
			"condition": r.Condition,
		},
	}
}

func (e *Engine) handOff(ctx context.Context, n models.HomeNotification) {
	if e.OnFire != nil {
		e.OnFire(n)
	}
	if err := e.deliver.Deliver(ctx, n); err != nil {
		e.log.Error().Err(err).Str("notification_id", n.ID).Msg("notification delivery failed")
	}
}

// Post records and delivers a notification raised directly by a caller
func (e *Engine) Post(ctx context.Context, n models.HomeNotification) models.HomeNotification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = e.now()
	}
	if n.Priority == "" {
		n.Priority = models.PriorityNormal
	}

	e.mu.Lock()
	e.appendHistoryLocked(n)
	_ = e.saveHistoryLocked(ctx)
	e.mu.Unlock()

	e.handOff(ctx, n)
	return n
}

func (e *Engine) appendHistoryLocked(n models.HomeNotification) {
	e.history = append(e.history, n)
	e.trimHistoryLocked()
}

func (e *Engine) trimHistoryLocked() {
	if over := len(e.history) - e.cfg.HistoryLimit; over > 0 {
		e.history = append([]models.HomeNotification{}, e.history[over:]...)
	}
}

func (e *Engine) saveRulesLocked(ctx context.Context) error {
	rules := append([]models.NotificationRule{}, e.rules...)
	if err := e.store.Save(context.WithoutCancel(ctx), store.TableRules, rules); err != nil {
		e.log.Error().Err(err).Msg("failed to persist notification rules")
		return err
	}
	return nil
}

func (e *Engine) saveHistoryLocked(ctx context.Context) error {
	history := append([]models.HomeNotification{}, e.history...)
	if err := e.store.Save(context.WithoutCancel(ctx), store.TableHistory, history); err != nil {
		e.log.Error().Err(err).Msg("failed to persist notification history")
		return err
	}
	return nil
}
