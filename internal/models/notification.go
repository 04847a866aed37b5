package models

import (
	"encoding/json"
	"time"
)

// NotificationKind classifies a notification
type NotificationKind string

const (
	NotifyLowBattery        NotificationKind = "low_battery"
	NotifyDeviceUnreachable NotificationKind = "device_unreachable"
	NotifyMotionDetected    NotificationKind = "motion_detected"
	NotifyDoorOpened        NotificationKind = "door_opened"
	NotifyLeakDetected      NotificationKind = "leak_detected"
	NotifySmokeDetected     NotificationKind = "smoke_detected"
	NotifyCarbonMonoxide    NotificationKind = "carbon_monoxide"
	NotifyTemperatureAlert  NotificationKind = "temperature_alert"
	NotifySceneExecuted     NotificationKind = "scene_executed"
	NotifyCommandFailed     NotificationKind = "command_failed"
	NotifyCustom            NotificationKind = "custom"
)

// Priority of a notification
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// NotificationRule raises a notification when Condition holds for an observed device.
// An empty DeviceID matches every device.
type NotificationRule struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Kind      NotificationKind `json:"kind"`
	DeviceID  string           `json:"device_id,omitempty"`
	Condition string           `json:"condition"`
	Message   string           `json:"message,omitempty"`
	Enabled   bool             `json:"enabled"`
	Priority  Priority         `json:"priority"`
	Cooldown  time.Duration    `json:"-"`
	LastFired *time.Time       `json:"last_fired,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

type ruleJSON NotificationRule

// MarshalJSON writes Cooldown as whole seconds under cooldown_seconds
func (r NotificationRule) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ruleJSON
		CooldownSeconds int64 `json:"cooldown_seconds"`
	}{ruleJSON(r), int64(r.Cooldown / time.Second)})
}

func (r *NotificationRule) UnmarshalJSON(data []byte) error {
	var aux struct {
		ruleJSON
		CooldownSeconds int64 `json:"cooldown_seconds"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = NotificationRule(aux.ruleJSON)
	r.Cooldown = time.Duration(aux.CooldownSeconds) * time.Second
	return nil
}

// CoolingDown reports whether the rule fired less than Cooldown ago
func (r NotificationRule) CoolingDown(now time.Time) bool {
	return r.LastFired != nil && now.Sub(*r.LastFired) < r.Cooldown
}

// AppliesTo reports whether the rule's device filter accepts deviceID
func (r NotificationRule) AppliesTo(deviceID string) bool {
	return r.DeviceID == "" || r.DeviceID == deviceID
}

// HomeNotification is one raised notification
type HomeNotification struct {
	ID         string            `json:"id"`
	Kind       NotificationKind  `json:"kind"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Priority   Priority          `json:"priority"`
	DeviceID   string            `json:"device_id,omitempty"`
	DeviceName string            `json:"device_name,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	Read       bool              `json:"read"`
	Actioned   bool              `json:"actioned"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}
