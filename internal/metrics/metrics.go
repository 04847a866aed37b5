// Package metrics exposes prometheus collectors for the command pipeline and notifications.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"homecore/internal/models"
)

// Collectors groups every metric the service exports
type Collectors struct {
	Commands       *prometheus.CounterVec
	Attempts       *prometheus.HistogramVec
	QueueDepth     prometheus.Gauge
	Dropped        prometheus.Counter
	Notifications  *prometheus.CounterVec
	RateLimited    prometheus.Counter
	RateLimitUsage prometheus.GaugeFunc
}

// New creates the collectors and registers them with reg. rate reports the
// number of commands in the current rate window and may be nil.
func New(reg prometheus.Registerer, rate func() int) *Collectors {
	c := &Collectors{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homecore",
			Name:      "commands_total",
			Help:      "Commands handled by the dispatcher, by kind and result.",
		}, []string{"kind", "status"}),
		Attempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "homecore",
			Name:      "command_attempts",
			Help:      "Write attempts per command.",
			Buckets:   []float64{0, 1, 2, 3, 5},
		}, []string{"kind"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "homecore",
			Name:      "offline_queue_depth",
			Help:      "Commands waiting for the control channel.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "homecore",
			Name:      "offline_queue_stale_dropped_total",
			Help:      "Queued commands dropped because they were too old to replay.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homecore",
			Name:      "notifications_total",
			Help:      "Notifications raised, by kind and priority.",
		}, []string{"kind", "priority"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "homecore",
			Name:      "rate_limited_total",
			Help:      "Commands rejected by the rate limiter.",
		}),
	}
	reg.MustRegister(c.Commands, c.Attempts, c.QueueDepth, c.Dropped, c.Notifications, c.RateLimited)

	if rate != nil {
		c.RateLimitUsage = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "homecore",
			Name:      "commands_in_rate_window",
			Help:      "Commands issued within the sustained rate window.",
		}, func() float64 { return float64(rate()) })
		reg.MustRegister(c.RateLimitUsage)
	}
	return c
}

// CommandFinished records one dispatcher result
func (c *Collectors) CommandFinished(kind models.CommandKind, status string, attempts int) {
	c.Commands.WithLabelValues(string(kind), status).Inc()
	if status == "rate_limited" {
		c.RateLimited.Inc()
		return
	}
	c.Attempts.WithLabelValues(string(kind)).Observe(float64(attempts))
}

// StaleDropped counts commands dropped by a queue drain
func (c *Collectors) StaleDropped(n int) {
	c.Dropped.Add(float64(n))
}

// SetQueueDepth matches the queue's OnChange hook
func (c *Collectors) SetQueueDepth(depth int) {
	c.QueueDepth.Set(float64(depth))
}

// NotificationFired matches the rule engine's OnFire hook
func (c *Collectors) NotificationFired(n models.HomeNotification) {
	c.Notifications.WithLabelValues(string(n.Kind), string(n.Priority)).Inc()
}
