package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"homecore/internal/condition"
	"homecore/internal/models"
)

// Rules returns a copy of all rules
func (e *Engine) Rules() []models.NotificationRule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.NotificationRule{}, e.rules...)
}

// Rule returns the rule with id
func (e *Engine) Rule(id string) (models.NotificationRule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.indexLocked(id)
	if i < 0 {
		return models.NotificationRule{}, fmt.Errorf("%s: %w", id, ErrRuleNotFound)
	}
	return e.rules[i], nil
}

func (e *Engine) indexLocked(id string) int {
	for i, r := range e.rules {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func validateRule(r models.NotificationRule) error {
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	if r.Cooldown < 0 {
		return fmt.Errorf("%w: cooldown must not be negative", ErrInvalidRule)
	}
	if err := condition.Validate(r.Condition); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}
	return nil
}

// AddRule validates and stores a new rule, assigning its ID and creation time
func (e *Engine) AddRule(ctx context.Context, r models.NotificationRule) (models.NotificationRule, error) {
	if err := validateRule(r); err != nil {
		return models.NotificationRule{}, err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Kind == "" {
		r.Kind = models.NotifyCustom
	}
	if r.Priority == "" {
		r.Priority = models.PriorityNormal
	}
	r.CreatedAt = e.now()
	r.LastFired = nil

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.indexLocked(r.ID) >= 0 {
		return models.NotificationRule{}, fmt.Errorf("%w: %s already exists", ErrInvalidRule, r.ID)
	}
	e.rules = append(e.rules, r)
	return r, e.saveRulesLocked(ctx)
}

// UpdateRule replaces the editable fields of an existing rule. Creation and
// last-fired times are kept.
func (e *Engine) UpdateRule(ctx context.Context, r models.NotificationRule) (models.NotificationRule, error) {
	if err := validateRule(r); err != nil {
		return models.NotificationRule{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.indexLocked(r.ID)
	if i < 0 {
		return models.NotificationRule{}, fmt.Errorf("%s: %w", r.ID, ErrRuleNotFound)
	}
	r.CreatedAt = e.rules[i].CreatedAt
	r.LastFired = e.rules[i].LastFired
	e.rules[i] = r
	return r, e.saveRulesLocked(ctx)
}

// SetEnabled turns a rule on or off
func (e *Engine) SetEnabled(ctx context.Context, id string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%s: %w", id, ErrRuleNotFound)
	}
	e.rules[i].Enabled = enabled
	return e.saveRulesLocked(ctx)
}

// DeleteRule removes a rule
func (e *Engine) DeleteRule(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%s: %w", id, ErrRuleNotFound)
	}
	e.rules = append(e.rules[:i], e.rules[i+1:]...)
	return e.saveRulesLocked(ctx)
}
