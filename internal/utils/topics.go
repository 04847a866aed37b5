package utils

import (
	"fmt"
	"strings"
)

const (
	// DeviceStateTopic is subscribed to for device state reports
	DeviceStateTopic = "devices/+/state"
)

// ParseDeviceID extracts the device ID from a devices/<id>/... topic
func ParseDeviceID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) > 1 {
		return parts[1]
	}
	return ""
}

// DeviceCommandTopic is where commands for a device are published
func DeviceCommandTopic(deviceID string) string {
	return fmt.Sprintf("devices/%s/commands", deviceID)
}

// SceneCommandTopic is where scene executions are published
func SceneCommandTopic(sceneID string) string {
	return fmt.Sprintf("scenes/%s/execute", sceneID)
}

// NotificationTopic is where raised notifications are fanned out
func NotificationTopic(kind string) string {
	return fmt.Sprintf("notifications/%s", kind)
}
