package notify

import (
	"time"

	"homecore/internal/models"
)

// DefaultRules is the rule set installed when no rules have been saved yet
func DefaultRules(now time.Time) []models.NotificationRule {
	rule := func(id, name string, kind models.NotificationKind, cond, msg string, p models.Priority, cooldown time.Duration) models.NotificationRule {
		return models.NotificationRule{
			ID:        id,
			Name:      name,
			Kind:      kind,
			Condition: cond,
			Message:   msg,
			Enabled:   true,
			Priority:  p,
			Cooldown:  cooldown,
			CreatedAt: now,
		}
	}
	return []models.NotificationRule{
		rule("default-low-battery", "Low Battery", models.NotifyLowBattery,
			"battery < 20", "Battery is running low", models.PriorityNormal, 24*time.Hour),
		rule("default-unreachable", "Device Not Responding", models.NotifyDeviceUnreachable,
			"reachable = false", "Device is not responding", models.PriorityHigh, time.Hour),
		rule("default-leak", "Water Leak Detected", models.NotifyLeakDetected,
			"leak = detected", "Water leak detected", models.PriorityCritical, 5*time.Minute),
		rule("default-smoke", "Smoke Detected", models.NotifySmokeDetected,
			"smoke = detected", "Smoke detected", models.PriorityCritical, time.Minute),
		rule("default-co", "Carbon Monoxide Detected", models.NotifyCarbonMonoxide,
			"carbon monoxide = detected", "Carbon monoxide detected", models.PriorityCritical, time.Minute),
		rule("default-door-open", "Door Opened", models.NotifyDoorOpened,
			"contact = open", "Door or window opened", models.PriorityNormal, 5*time.Minute),
		rule("default-temperature", "Temperature Alert", models.NotifyTemperatureAlert,
			"temperature > 35 OR temperature < 5", "Temperature outside the safe range", models.PriorityHigh, 30*time.Minute),
	}
}
