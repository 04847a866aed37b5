package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"homecore/internal/device"
	"homecore/internal/models"
	"homecore/internal/utils"
)

const streamPrefix = "stream:device:"

// DeviceStates keeps the latest snapshot of every device under device:<id>
// and buffers raw state reports in one stream per device.
type DeviceStates struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDeviceStates creates the state directory. ttl 0 keeps snapshots forever.
func NewDeviceStates(client *redis.Client, ttl time.Duration) *DeviceStates {
	return &DeviceStates{client: client, ttl: ttl}
}

func stateKey(id string) string {
	return fmt.Sprintf("device:%s", id)
}

// Get returns the stored snapshot of id, or device.ErrNotFound
func (s *DeviceStates) Get(ctx context.Context, id string) (models.Device, error) {
	raw, err := s.client.Get(ctx, stateKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Device{}, fmt.Errorf("device %s: %w", id, device.ErrNotFound)
	}
	if err != nil {
		return models.Device{}, device.NewError(device.ReasonTransport, id, err)
	}
	var d models.Device
	if err := json.Unmarshal(raw, &d); err != nil {
		return models.Device{}, fmt.Errorf("decode device %s: %w", id, err)
	}
	return d, nil
}

// Put stores a snapshot
func (s *DeviceStates) Put(ctx context.Context, d models.Device) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, stateKey(d.ID), raw, s.ttl).Err()
}

// Append buffers a raw state report for later debounced processing
func (s *DeviceStates) Append(ctx context.Context, deviceID string, payload []byte) error {
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamPrefix + deviceID,
		MaxLen: utils.StreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"state":     string(payload),
			"timestamp": time.Now().UnixNano(),
		},
	}).Err()
}

// Report is the latest buffered state report of one device
type Report struct {
	DeviceID string
	Payload  []byte
}

// ReadLatest blocks up to block for new reports and returns the newest one
// per device. The read position is stored so each report is seen once.
func (s *DeviceStates) ReadLatest(ctx context.Context, block time.Duration) ([]Report, error) {
	keys, err := s.streamKeys(ctx)
	if err != nil || len(keys) == 0 {
		return nil, err
	}

	ids := make([]string, len(keys))
	for i, key := range keys {
		last, err := s.client.Get(ctx, "last_read:"+key).Result()
		if err != nil {
			last = "0-0"
		}
		ids[i] = last
	}

	streams, err := s.client.XRead(ctx, &redis.XReadArgs{
		Streams: append(keys, ids...),
		Block:   block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var reports []Report
	for _, stream := range streams {
		if len(stream.Messages) == 0 {
			continue
		}
		latest := stream.Messages[len(stream.Messages)-1]
		if raw, ok := latest.Values["state"].(string); ok {
			reports = append(reports, Report{
				DeviceID: strings.TrimPrefix(stream.Stream, streamPrefix),
				Payload:  []byte(raw),
			})
		}
		if err := s.client.Set(ctx, "last_read:"+stream.Stream, latest.ID, 0).Err(); err != nil {
			return reports, err
		}
	}
	return reports, nil
}

func (s *DeviceStates) streamKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, streamPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}
