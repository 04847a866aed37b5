package device

import (
	"context"
	"fmt"
	"sync"

	"homecore/internal/models"
)

// WriteCall records one call made to a FakeWriter
type WriteCall struct {
	DeviceID       string
	SceneID        string
	Characteristic string
	Value          models.Value
}

// FakeWriter records writes and returns scripted errors for tests.
type FakeWriter struct {
	mu sync.Mutex

	// Calls contains every write in call order.
	Calls []WriteCall

	// Errors are returned one per call in order; nil entries succeed.
	// Once exhausted, Err is returned for every further call.
	Errors []error

	// Err is returned when Errors is exhausted.
	Err error

	// OnWrite, if set, runs after a write is recorded.
	OnWrite func(call WriteCall)
}

// NewFakeWriter creates a FakeWriter that always succeeds
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{}
}

func (f *FakeWriter) next(call WriteCall) error {
	f.mu.Lock()
	f.Calls = append(f.Calls, call)
	var err error
	if len(f.Errors) > 0 {
		err = f.Errors[0]
		f.Errors = f.Errors[1:]
	} else {
		err = f.Err
	}
	hook := f.OnWrite
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return err
}

func (f *FakeWriter) Write(ctx context.Context, deviceID, characteristic string, value models.Value) error {
	return f.next(WriteCall{DeviceID: deviceID, Characteristic: characteristic, Value: value})
}

func (f *FakeWriter) WriteScene(ctx context.Context, sceneID string) error {
	return f.next(WriteCall{SceneID: sceneID})
}

// CallCount returns the number of writes seen so far
func (f *FakeWriter) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// Snapshot returns a copy of the recorded calls
func (f *FakeWriter) Snapshot() []WriteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]WriteCall(nil), f.Calls...)
}

// FakeDirectory is an in-memory Directory for tests
type FakeDirectory struct {
	mu      sync.Mutex
	devices map[string]models.Device
	scenes  map[string][]string
}

// NewFakeDirectory creates an empty FakeDirectory
func NewFakeDirectory() *FakeDirectory {
	return &FakeDirectory{
		devices: make(map[string]models.Device),
		scenes:  make(map[string][]string),
	}
}

// SetDevice stores or replaces a device snapshot
func (f *FakeDirectory) SetDevice(d models.Device) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices[d.ID] = d
}

// SetReachable updates the reachability of a stored device
func (f *FakeDirectory) SetReachable(id string, reachable bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.devices[id]
	d.ID = id
	d.Reachable = reachable
	f.devices[id] = d
}

// SetScene stores the target devices of a scene
func (f *FakeDirectory) SetScene(sceneID string, targets ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scenes[sceneID] = targets
}

func (f *FakeDirectory) Device(ctx context.Context, id string) (models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.devices[id]
	if !ok {
		return models.Device{}, fmt.Errorf("device %s: %w", id, ErrNotFound)
	}
	return d, nil
}

func (f *FakeDirectory) SceneTargets(ctx context.Context, sceneID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	targets, ok := f.scenes[sceneID]
	if !ok {
		return nil, fmt.Errorf("scene %s: %w", sceneID, ErrNotFound)
	}
	return append([]string(nil), targets...), nil
}
