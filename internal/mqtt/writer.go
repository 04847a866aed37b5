package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"

	"homecore/internal/device"
	"homecore/internal/models"
	"homecore/internal/utils"
)

// Publisher is the part of MQTT.Client used to send messages
type Publisher interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) MQTT.Token
}

// CommandPayload is published on devices/<id>/commands
type CommandPayload struct {
	Characteristic string      `json:"characteristic"`
	Value          interface{} `json:"value"`
	SentAt         time.Time   `json:"sent_at"`
}

// ScenePayload is published on scenes/<id>/execute
type ScenePayload struct {
	SceneID string    `json:"scene_id"`
	SentAt  time.Time `json:"sent_at"`
}

// Writer sends device and scene commands over MQTT
type Writer struct {
	client  Publisher
	timeout time.Duration
}

// NewWriter creates a Writer that waits up to timeout for each publish to be acknowledged
func NewWriter(client Publisher, timeout time.Duration) *Writer {
	return &Writer{client: client, timeout: timeout}
}

func (w *Writer) Write(ctx context.Context, deviceID, characteristic string, value models.Value) error {
	if characteristic == "" {
		return device.NewError(device.ReasonInvalid, deviceID, errors.New("empty characteristic"))
	}
	payload, err := json.Marshal(CommandPayload{
		Characteristic: characteristic,
		Value:          value.Interface(),
		SentAt:         time.Now().UTC(),
	})
	if err != nil {
		return device.NewError(device.ReasonInvalid, deviceID, err)
	}
	if err := w.publish(ctx, deviceID, utils.DeviceCommandTopic(deviceID), payload); err != nil {
		var derr *device.Error
		if errors.As(err, &derr) {
			derr.Characteristic = characteristic
		}
		return err
	}
	return nil
}

func (w *Writer) WriteScene(ctx context.Context, sceneID string) error {
	payload, err := json.Marshal(ScenePayload{SceneID: sceneID, SentAt: time.Now().UTC()})
	if err != nil {
		return device.NewError(device.ReasonInvalid, sceneID, err)
	}
	return w.publish(ctx, sceneID, utils.SceneCommandTopic(sceneID), payload)
}

func (w *Writer) publish(ctx context.Context, target, topic string, payload []byte) error {
	if !w.client.IsConnectionOpen() {
		return device.NewError(device.ReasonOffline, target, errors.New("mqtt not connected"))
	}
	token := w.client.Publish(topic, 1, false, payload)

	timer := time.NewTimer(w.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-timer.C:
		return device.NewError(device.ReasonTimeout, target, errors.New("publish not acknowledged"))
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return device.NewError(device.ReasonTransport, target, err)
	}
	return nil
}
