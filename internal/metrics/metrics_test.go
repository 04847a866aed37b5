package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"homecore/internal/models"
)

func TestCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	rate := 7
	c := New(reg, func() int { return rate })

	c.CommandFinished(models.CommandToggleDevice, "succeeded", 1)
	c.CommandFinished(models.CommandToggleDevice, "queued", 3)
	c.CommandFinished(models.CommandToggleDevice, "rate_limited", 0)
	c.StaleDropped(2)
	c.SetQueueDepth(4)
	c.NotificationFired(models.HomeNotification{Kind: models.NotifyLowBattery, Priority: models.PriorityNormal})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Commands.WithLabelValues("toggle_device", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RateLimited))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Dropped))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.QueueDepth))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Notifications.WithLabelValues("low_battery", "normal")))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.RateLimitUsage))
	assert.Equal(t, 1, testutil.CollectAndCount(c.Attempts), "one series per kind")
}
