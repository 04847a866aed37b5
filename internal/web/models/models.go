package models

import (
	"time"

	core "homecore/internal/models"
)

type CommandRequest struct {
	Kind           core.CommandKind `json:"kind" binding:"required"`
	DeviceID       string           `json:"device_id"`
	SceneID        string           `json:"scene_id"`
	Characteristic string           `json:"characteristic"`
	Value          *core.Value      `json:"value"`
}

func (r CommandRequest) Command() core.PendingCommand {
	return core.PendingCommand{
		Kind:           r.Kind,
		DeviceID:       r.DeviceID,
		SceneID:        r.SceneID,
		Characteristic: r.Characteristic,
		Value:          r.Value,
	}
}

type AddRuleRequest struct {
	Name            string                `json:"name" binding:"required"`
	Kind            core.NotificationKind `json:"kind"`
	DeviceID        string                `json:"device_id"`
	Condition       string                `json:"condition" binding:"required"`
	Message         string                `json:"message"`
	Enabled         *bool                 `json:"enabled"`
	Priority        core.Priority         `json:"priority"`
	CooldownSeconds int                   `json:"cooldown_seconds"`
}

func (r AddRuleRequest) Rule() core.NotificationRule {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	return core.NotificationRule{
		Name:      r.Name,
		Kind:      r.Kind,
		DeviceID:  r.DeviceID,
		Condition: r.Condition,
		Message:   r.Message,
		Enabled:   enabled,
		Priority:  r.Priority,
		Cooldown:  time.Duration(r.CooldownSeconds) * time.Second,
	}
}

type UpdateRuleRequest struct {
	Name            *string                `json:"name"`
	Kind            *core.NotificationKind `json:"kind"`
	DeviceID        *string                `json:"device_id"`
	Condition       *string                `json:"condition"`
	Message         *string                `json:"message"`
	Enabled         *bool                  `json:"enabled"`
	Priority        *core.Priority         `json:"priority"`
	CooldownSeconds *int                   `json:"cooldown_seconds"`
}

// Apply copies the provided fields onto r
func (u UpdateRuleRequest) Apply(r *core.NotificationRule) {
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.Kind != nil {
		r.Kind = *u.Kind
	}
	if u.DeviceID != nil {
		r.DeviceID = *u.DeviceID
	}
	if u.Condition != nil {
		r.Condition = *u.Condition
	}
	if u.Message != nil {
		r.Message = *u.Message
	}
	if u.Enabled != nil {
		r.Enabled = *u.Enabled
	}
	if u.Priority != nil {
		r.Priority = *u.Priority
	}
	if u.CooldownSeconds != nil {
		r.Cooldown = time.Duration(*u.CooldownSeconds) * time.Second
	}
}

type StatusResponse struct {
	Online        bool   `json:"online"`
	CurrentRate   int    `json:"current_rate"`
	Pending       int    `json:"pending"`
	Unread        int    `json:"unread"`
	StatusMessage string `json:"status_message,omitempty"`
}
