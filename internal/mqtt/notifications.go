package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"homecore/internal/models"
	"homecore/internal/utils"
)

// NotificationPublisher fans notifications out on notifications/<kind>
type NotificationPublisher struct {
	client  Publisher
	timeout time.Duration
}

// NewNotificationPublisher creates a publisher for raised notifications
func NewNotificationPublisher(client Publisher, timeout time.Duration) *NotificationPublisher {
	return &NotificationPublisher{client: client, timeout: timeout}
}

func (p *NotificationPublisher) Deliver(ctx context.Context, n models.HomeNotification) error {
	if !p.client.IsConnectionOpen() {
		return errors.New("mqtt not connected")
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	token := p.client.Publish(utils.NotificationTopic(string(n.Kind)), 0, false, payload)
	if !token.WaitTimeout(p.timeout) {
		return errors.New("notification publish timed out")
	}
	return token.Error()
}
