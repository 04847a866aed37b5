package dispatch

import (
	"errors"
	"fmt"
	"math"
	"time"

	"homecore/internal/device"
	"homecore/internal/models"
)

// Status is the terminal state of one Execute call
type Status string

const (
	StatusSucceeded   Status = "succeeded"
	StatusQueued      Status = "queued"
	StatusFailed      Status = "failed"
	StatusRateLimited Status = "rate_limited"
)

// Result is what the caller of Execute gets back
type Result struct {
	CommandID  string               `json:"command_id"`
	Status     Status               `json:"status"`
	Message    string               `json:"message"`
	RetryAfter time.Duration        `json:"retry_after,omitempty"`
	Attempts   int                  `json:"attempts"`
	Scene      *models.SceneOutcome `json:"scene,omitempty"`
	Err        error                `json:"-"`
}

func rateLimitedMessage(wait time.Duration) string {
	if wait <= 0 {
		return "Too many commands, try again shortly"
	}
	secs := int(math.Ceil(wait.Seconds()))
	return fmt.Sprintf("Too many commands, try again in %ds", secs)
}

func queuedMessage(cmd models.PendingCommand) string {
	return fmt.Sprintf("%s is not responding, will retry when back online", cmd.Target())
}

func failedMessage(cmd models.PendingCommand, err error) string {
	var derr *device.Error
	characteristic := cmd.Characteristic
	if errors.As(err, &derr) && derr.Characteristic != "" {
		characteristic = derr.Characteristic
	}
	if characteristic == "" && cmd.Kind == models.CommandToggleDevice {
		characteristic = string(models.PropPower)
	}

	switch device.ReasonOf(err) {
	case device.ReasonUnsupported:
		return fmt.Sprintf("%s does not support %q", cmd.Target(), characteristic)
	case device.ReasonUnauthorized:
		return fmt.Sprintf("Not authorized to control %s", cmd.Target())
	case device.ReasonInvalid:
		return fmt.Sprintf("Invalid command: %v", err)
	}
	return fmt.Sprintf("Command to %s failed: %v", cmd.Target(), err)
}
