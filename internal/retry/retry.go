// Package retry runs one operation with a bounded number of attempts and a
// fixed delay between them. It reports what happened and leaves the decision
// of what to do with a terminal failure to the caller.
package retry

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"homecore/internal/device"
	"homecore/internal/utils"
)

// Op is one attempt of the wrapped operation
type Op func(ctx context.Context) error

// Outcome describes a finished Do call
type Outcome struct {
	Attempts  int
	Err       error
	Cancelled bool
}

// OK reports whether the operation eventually succeeded
func (o Outcome) OK() bool { return o.Err == nil }

// Coordinator retries operations with a fixed delay. Safe for concurrent use;
// each Do call keeps its own attempt count.
type Coordinator struct {
	MaxAttempts int
	Delay       time.Duration
	log         zerolog.Logger
}

// New creates a Coordinator. maxAttempts below 1 is treated as 1.
func New(maxAttempts int, delay time.Duration) *Coordinator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Coordinator{
		MaxAttempts: maxAttempts,
		Delay:       delay,
		log:         utils.Component("retry"),
	}
}

// Default returns the stock policy: 3 attempts, 2 seconds apart
func Default() *Coordinator {
	return New(3, 2*time.Second)
}

// Do runs op until it succeeds, fails permanently, runs out of attempts, or ctx is done
func (c *Coordinator) Do(ctx context.Context, op Op) Outcome {
	var out Outcome
	for out.Attempts < c.MaxAttempts {
		if err := ctx.Err(); err != nil {
			out.Err, out.Cancelled = err, true
			return out
		}

		out.Attempts++
		err := op(ctx)
		if err == nil {
			out.Err = nil
			return out
		}
		out.Err = err

		if device.IsPermanent(err) {
			c.log.Debug().Err(err).Int("attempt", out.Attempts).Msg("permanent failure, not retrying")
			return out
		}
		if out.Attempts >= c.MaxAttempts {
			break
		}

		c.log.Debug().Err(err).Int("attempt", out.Attempts).Dur("delay", c.Delay).Msg("attempt failed, retrying")
		if !sleep(ctx, c.Delay) {
			out.Err, out.Cancelled = ctx.Err(), true
			return out
		}
	}
	c.log.Warn().Err(out.Err).Int("attempts", out.Attempts).Msg("retries exhausted")
	return out
}

// sleep waits for d or until ctx is done, reporting whether the full delay elapsed
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
