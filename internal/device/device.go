// Package device defines the capabilities the core needs from the outside world:
// a directory of device state and scenes, a write channel to the devices, and a
// connectivity signal. Transport specifics live in the mqtt and redis packages.
package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homecore/internal/models"
)

// ErrNotFound is returned by a Directory for unknown devices or scenes
var ErrNotFound = errors.New("not found")

// Directory resolves device and scene identities to their current state
type Directory interface {
	Device(ctx context.Context, id string) (models.Device, error)
	SceneTargets(ctx context.Context, sceneID string) ([]string, error)
}

// Writer sends commands to devices
type Writer interface {
	Write(ctx context.Context, deviceID, characteristic string, value models.Value) error
	WriteScene(ctx context.Context, sceneID string) error
}

// ConnectivityEvent is an online/offline transition of the control channel
type ConnectivityEvent struct {
	Online bool
	At     time.Time
}

// StateSource provides device snapshots
type StateSource interface {
	Get(ctx context.Context, id string) (models.Device, error)
}

// SceneSource provides scene definitions
type SceneSource interface {
	GetSceneByID(ctx context.Context, id string) (*models.Scene, error)
}

// CompositeDirectory answers device lookups from a StateSource and scene lookups from a SceneSource
type CompositeDirectory struct {
	states StateSource
	scenes SceneSource
}

// NewDirectory creates a Directory backed by the given sources
func NewDirectory(states StateSource, scenes SceneSource) *CompositeDirectory {
	return &CompositeDirectory{states: states, scenes: scenes}
}

func (d *CompositeDirectory) Device(ctx context.Context, id string) (models.Device, error) {
	return d.states.Get(ctx, id)
}

func (d *CompositeDirectory) SceneTargets(ctx context.Context, sceneID string) ([]string, error) {
	scene, err := d.scenes.GetSceneByID(ctx, sceneID)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", sceneID, err)
	}
	return scene.Targets(), nil
}
