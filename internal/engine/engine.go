// Package engine turns device state reports into notification rule
// evaluations. Reports arrive on MQTT, are optionally debounced through a
// per-device Redis stream, merged into the device directory and observed by
// the rule engine.
package engine

import (
	"context"
	"errors"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"homecore/internal/device"
	"homecore/internal/dispatch"
	"homecore/internal/models"
	"homecore/internal/notify"
	"homecore/internal/redis"
	"homecore/internal/utils"
)

// StateStore keeps the latest snapshot per device
type StateStore interface {
	Get(ctx context.Context, id string) (models.Device, error)
	Put(ctx context.Context, d models.Device) error
}

// StateBuffer debounces raw reports
type StateBuffer interface {
	Append(ctx context.Context, deviceID string, payload []byte) error
	ReadLatest(ctx context.Context, block time.Duration) ([]redis.Report, error)
}

// Observer evaluates notification rules
type Observer interface {
	Observe(ctx context.Context, obs notify.Observation) []models.HomeNotification
}

// Fallback supplies the last commanded power state when a device never reports it
type Fallback interface {
	Accessory(id string) (dispatch.Accessory, bool)
}

// Engine is the state observation pipeline
type Engine struct {
	mqttClient MQTT.Client
	states     StateStore
	buffer     StateBuffer
	observer   Observer
	fallback   Fallback
	now        func() time.Time
	log        zerolog.Logger
	cancel     context.CancelFunc
}

// NewEngine creates a new engine instance. buffer may be nil to process reports as they arrive.
func NewEngine(mqttClient MQTT.Client, states StateStore, buffer StateBuffer, observer Observer) *Engine {
	return &Engine{
		mqttClient: mqttClient,
		states:     states,
		buffer:     buffer,
		observer:   observer,
		now:        time.Now,
		log:        utils.Component("engine"),
	}
}

// SetFallback enables filling power from the accessory cache
func (e *Engine) SetFallback(f Fallback) {
	e.fallback = f
}

// Start subscribes to device state reports
func (e *Engine) Start(ctx context.Context) error {
	ctx, e.cancel = context.WithCancel(ctx)

	e.log.Info().Str("topic", utils.DeviceStateTopic).Msg("subscribing to device state")
	token := e.mqttClient.Subscribe(utils.DeviceStateTopic, 1, func(_ MQTT.Client, msg MQTT.Message) {
		e.onDeviceUpdate(ctx, msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		e.cancel()
		return token.Error()
	}

	if e.buffer != nil {
		go e.processStreams(ctx)
	}
	e.log.Info().Bool("debounced", e.buffer != nil).Msg("engine started")
	return nil
}

// Stop unsubscribes and ends stream processing
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.mqttClient.Unsubscribe(utils.DeviceStateTopic).WaitTimeout(time.Second)
	e.log.Info().Msg("engine stopped")
}

func (e *Engine) onDeviceUpdate(ctx context.Context, topic string, payload []byte) {
	deviceID := utils.ParseDeviceID(topic)
	if deviceID == "" {
		e.log.Warn().Str("topic", topic).Msg("state report without device id")
		return
	}
	if e.buffer == nil {
		if _, err := e.Process(ctx, deviceID, payload); err != nil {
			e.log.Error().Err(err).Str("device_id", deviceID).Msg("state report rejected")
		}
		return
	}
	if err := e.buffer.Append(ctx, deviceID, payload); err != nil {
		e.log.Error().Err(err).Str("device_id", deviceID).Msg("failed to buffer state report")
	}
}

// processStreams handles the newest buffered report of each device once per debounce window
func (e *Engine) processStreams(ctx context.Context) {
	for ctx.Err() == nil {
		reports, err := e.buffer.ReadLatest(ctx, utils.DebounceWindow)
		if err != nil && ctx.Err() == nil {
			e.log.Error().Err(err).Msg("error reading state streams")
		}
		if len(reports) == 0 {
			select {
			case <-ctx.Done():
			case <-time.After(utils.DebounceWindow):
			}
			continue
		}
		for _, r := range reports {
			if _, err := e.Process(ctx, r.DeviceID, r.Payload); err != nil {
				e.log.Error().Err(err).Str("device_id", r.DeviceID).Msg("state report rejected")
			}
		}
	}
}

// Process merges one report into the stored snapshot and runs the rules against it
func (e *Engine) Process(ctx context.Context, deviceID string, payload []byte) ([]models.HomeNotification, error) {
	report, err := ParseStateReport(payload)
	if err != nil {
		return nil, err
	}

	prev, err := e.states.Get(ctx, deviceID)
	if err != nil && !errors.Is(err, device.ErrNotFound) {
		return nil, err
	}

	d := merge(deviceID, prev, report, e.now())
	if err := e.states.Put(ctx, d); err != nil {
		return nil, err
	}

	obs := notify.Observation{DeviceID: d.ID, DeviceName: d.Name, Properties: d.Properties.Clone()}
	obs.Properties[models.PropReachable] = models.Bool(d.Reachable)
	e.fillFromCache(obs.Properties, deviceID)

	fired := e.observer.Observe(ctx, obs)
	e.log.Debug().Str("device_id", deviceID).Int("fired", len(fired)).Msg("state processed")
	return fired, nil
}

func merge(id string, prev models.Device, r StateReport, now time.Time) models.Device {
	d := prev
	d.ID = id
	if r.Name != "" {
		d.Name = r.Name
	}
	if r.Type != "" {
		d.Type = r.Type
	}
	// a device that reports is reachable unless it says otherwise
	d.Reachable = true
	if r.Reachable != nil {
		d.Reachable = *r.Reachable
	}
	d.Properties = prev.Properties.Clone()
	for p, v := range r.Properties {
		d.Properties[p] = v
	}
	d.UpdatedAt = now
	return d
}

func (e *Engine) fillFromCache(props models.PropertySet, deviceID string) {
	if e.fallback == nil {
		return
	}
	if _, ok := props.Lookup(models.PropPower); ok {
		return
	}
	if acc, ok := e.fallback.Accessory(deviceID); ok && !acc.Stale {
		props[models.PropPower] = models.Bool(acc.PowerState)
	}
}
