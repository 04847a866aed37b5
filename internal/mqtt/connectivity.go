package mqtt

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"homecore/internal/device"
	"homecore/internal/utils"
)

// Connectivity turns broker connection callbacks into a stream of
// device.ConnectivityEvent. It never blocks the MQTT client.
type Connectivity struct {
	mu     sync.Mutex
	events chan device.ConnectivityEvent
	now    func() time.Time
	log    zerolog.Logger
}

// NewConnectivity creates a monitor buffering up to size events
func NewConnectivity(size int) *Connectivity {
	if size < 1 {
		size = 1
	}
	return &Connectivity{
		events: make(chan device.ConnectivityEvent, size),
		now:    time.Now,
		log:    utils.Component("mqtt"),
	}
}

// Events is the channel the dispatcher consumes
func (c *Connectivity) Events() <-chan device.ConnectivityEvent {
	return c.events
}

// Post records a transition. When the buffer is full the oldest buffered
// event is discarded so the consumer always ends on the latest state.
func (c *Connectivity) Post(online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev := device.ConnectivityEvent{Online: online, At: c.now()}
	for {
		select {
		case c.events <- ev:
			c.log.Info().Bool("online", online).Msg("connectivity changed")
			return
		default:
		}
		select {
		case old := <-c.events:
			c.log.Warn().Bool("online", old.Online).Msg("stale connectivity event discarded, consumer is not keeping up")
		default:
		}
	}
}
