package dispatch

import (
	"context"
	"fmt"

	"homecore/internal/device"
	"homecore/internal/models"
	"homecore/internal/queue"
)

// Run consumes connectivity transitions until ctx is done or events is closed.
// An offline to online transition drains the queue before the next event is
// read; going offline marks every cached accessory unreachable.
func (d *Dispatcher) Run(ctx context.Context, events <-chan device.ConnectivityEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			d.handle(ctx, ev)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev device.ConnectivityEvent) {
	d.mu.Lock()
	was := d.online
	d.online = ev.Online
	d.mu.Unlock()

	switch {
	case ev.Online && !was:
		d.log.Info().Int("pending", d.queue.Len()).Msg("control channel online")
		d.Drain(ctx)
	case !ev.Online && was:
		d.mu.Lock()
		n := d.cache.markAllUnreachable(d.now())
		d.mu.Unlock()
		d.log.Warn().Int("accessories", n).Msg("control channel offline")
	}
}

// Drain replays queued commands if the control channel is online
func (d *Dispatcher) Drain(ctx context.Context) queue.DrainReport {
	report := d.queue.Drain(ctx, d.Online(), func(ctx context.Context, cmd models.PendingCommand) error {
		return d.apply(ctx, cmd)
	})

	if d.metrics != nil && len(report.Dropped) > 0 {
		d.metrics.StaleDropped(len(report.Dropped))
	}
	if n := len(report.Executed); n > 0 {
		d.scenes.Status().Show(fmt.Sprintf("Sent %d queued commands", n), d.cfg.ToggleTTL)
	}
	if len(report.Executed)+len(report.Dropped)+len(report.Failed) > 0 {
		d.log.Info().
			Int("executed", len(report.Executed)).
			Int("dropped", len(report.Dropped)).
			Int("failed", len(report.Failed)).
			Bool("cancelled", report.Cancelled).
			Msg("offline queue drained")
	}
	return report
}
