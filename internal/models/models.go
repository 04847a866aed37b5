package models

import "time"

// Device is the last observed snapshot of a device as published on its state topic
type Device struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Type       string      `json:"type"`
	Reachable  bool        `json:"reachable"`
	Properties PropertySet `json:"properties"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// SceneAction is one device write inside a scene
type SceneAction struct {
	DeviceID       string `json:"device_id"`
	Characteristic string `json:"characteristic"`
	Value          Value  `json:"value"`
}

// Scene represents a named batch of device writes
type Scene struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Actions []SceneAction `json:"actions"`
}

// Targets returns the distinct device IDs referenced by the scene, in action order
func (s Scene) Targets() []string {
	seen := make(map[string]bool, len(s.Actions))
	var targets []string
	for _, a := range s.Actions {
		if a.DeviceID == "" || seen[a.DeviceID] {
			continue
		}
		seen[a.DeviceID] = true
		targets = append(targets, a.DeviceID)
	}
	return targets
}

// Schedule represents a cron-triggered command
type Schedule struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	CronExpression string         `json:"cron_expression"`
	Command        PendingCommand `json:"command"`
	Enabled        bool           `json:"enabled"`
}

// CachedAccessoryState is the last known state of a device, used while offline
// and as a fallback for notification evaluation
type CachedAccessoryState struct {
	DeviceID   string    `json:"device_id"`
	Name       string    `json:"name"`
	PowerState bool      `json:"power_state"`
	Reachable  bool      `json:"reachable"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsStale reports whether the entry is older than staleAfter
func (s CachedAccessoryState) IsStale(now time.Time, staleAfter time.Duration) bool {
	return now.Sub(s.UpdatedAt) > staleAfter
}
