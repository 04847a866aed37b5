package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"homecore/internal/models"
	"homecore/internal/utils"
)

// Deliverer presents a notification to the user. The engine only builds the
// record; push, MQTT fan-out and websocket streaming live behind this interface.
type Deliverer interface {
	Deliver(ctx context.Context, n models.HomeNotification) error
}

// DelivererFunc adapts a function to Deliverer
type DelivererFunc func(ctx context.Context, n models.HomeNotification) error

func (f DelivererFunc) Deliver(ctx context.Context, n models.HomeNotification) error {
	return f(ctx, n)
}

// Fanout delivers to every member and joins their errors
type Fanout []Deliverer

func (f Fanout) Deliver(ctx context.Context, n models.HomeNotification) error {
	var errs []error
	for _, d := range f {
		if d == nil {
			continue
		}
		if err := d.Deliver(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogDeliverer writes notifications to the log
type LogDeliverer struct {
	log zerolog.Logger
}

// NewLogDeliverer creates a LogDeliverer
func NewLogDeliverer() *LogDeliverer {
	return &LogDeliverer{log: utils.Component("notify")}
}

func (l *LogDeliverer) Deliver(ctx context.Context, n models.HomeNotification) error {
	l.log.Info().
		Str("notification_id", n.ID).
		Str("kind", string(n.Kind)).
		Str("priority", string(n.Priority)).
		Str("device_id", n.DeviceID).
		Str("title", n.Title).
		Msg(n.Body)
	return nil
}
