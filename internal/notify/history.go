package notify

import (
	"context"
	"fmt"

	"homecore/internal/models"
)

// History returns the retained notifications, oldest first
func (e *Engine) History() []models.HomeNotification {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.HomeNotification{}, e.history...)
}

// UnreadCount returns how many retained notifications are unread
func (e *Engine) UnreadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, h := range e.history {
		if !h.Read {
			n++
		}
	}
	return n
}

func (e *Engine) updateNotification(ctx context.Context, id string, fn func(*models.HomeNotification)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.history {
		if e.history[i].ID == id {
			fn(&e.history[i])
			return e.saveHistoryLocked(ctx)
		}
	}
	return fmt.Errorf("%s: %w", id, ErrNotificationNotFound)
}

// MarkRead flags a notification as read
func (e *Engine) MarkRead(ctx context.Context, id string) error {
	return e.updateNotification(ctx, id, func(n *models.HomeNotification) { n.Read = true })
}

// MarkActioned flags a notification as acted upon, which also marks it read
func (e *Engine) MarkActioned(ctx context.Context, id string) error {
	return e.updateNotification(ctx, id, func(n *models.HomeNotification) {
		n.Actioned = true
		n.Read = true
	})
}

// MarkAllRead flags every retained notification as read
func (e *Engine) MarkAllRead(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.history {
		e.history[i].Read = true
	}
	return e.saveHistoryLocked(ctx)
}

// ClearHistory drops all retained notifications
func (e *Engine) ClearHistory(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = nil
	return e.saveHistoryLocked(ctx)
}
