package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDeviceID(t *testing.T) {
	assert.Equal(t, "lamp1", ParseDeviceID("devices/lamp1/state"))
	assert.Equal(t, "", ParseDeviceID("devices"))
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "devices/lamp1/commands", DeviceCommandTopic("lamp1"))
	assert.Equal(t, "scenes/evening/execute", SceneCommandTopic("evening"))
	assert.Equal(t, "notifications/low_battery", NotificationTopic("low_battery"))
}
