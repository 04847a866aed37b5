package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidCommand is returned for commands missing the fields their kind needs
var ErrInvalidCommand = errors.New("invalid command")

// CommandKind selects what a PendingCommand does
type CommandKind string

const (
	CommandToggleDevice      CommandKind = "toggle_device"
	CommandExecuteScene      CommandKind = "execute_scene"
	CommandSetCharacteristic CommandKind = "set_characteristic"
)

// PendingCommand is a durable unit of work that can be retried later
type PendingCommand struct {
	ID             string      `json:"id"`
	CreatedAt      time.Time   `json:"created_at"`
	Kind           CommandKind `json:"kind"`
	DeviceID       string      `json:"device_id,omitempty"`
	SceneID        string      `json:"scene_id,omitempty"`
	Characteristic string      `json:"characteristic,omitempty"`
	Value          *Value      `json:"value,omitempty"`
}

// Age is the time elapsed since the command was created
func (c PendingCommand) Age(now time.Time) time.Duration {
	return now.Sub(c.CreatedAt)
}

// Expired reports whether the command is older than timeout and should not be applied
func (c PendingCommand) Expired(now time.Time, timeout time.Duration) bool {
	return c.Age(now) > timeout
}

// Target returns the device or scene the command addresses
func (c PendingCommand) Target() string {
	if c.Kind == CommandExecuteScene {
		return c.SceneID
	}
	return c.DeviceID
}

// Validate checks that the payload needed by the command kind is present
func (c PendingCommand) Validate() error {
	switch c.Kind {
	case CommandToggleDevice:
		if c.DeviceID == "" {
			return fmt.Errorf("%w: toggle requires device_id", ErrInvalidCommand)
		}
	case CommandExecuteScene:
		if c.SceneID == "" {
			return fmt.Errorf("%w: scene execution requires scene_id", ErrInvalidCommand)
		}
	case CommandSetCharacteristic:
		if c.DeviceID == "" || c.Characteristic == "" {
			return fmt.Errorf("%w: set requires device_id and characteristic", ErrInvalidCommand)
		}
		if c.Value == nil || c.Value.IsZero() {
			return fmt.Errorf("%w: set requires a value", ErrInvalidCommand)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidCommand, c.Kind)
	}
	return nil
}

// CommandRecord is one line of the command audit log
type CommandRecord struct {
	CommandID string      `json:"command_id"`
	Kind      CommandKind `json:"kind"`
	Target    string      `json:"target"`
	Status    string      `json:"status"`
	Message   string      `json:"message"`
	Attempts  int         `json:"attempts"`
	At        time.Time   `json:"at"`
}
