package pipeline

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer is the backpressure policy applied between record batches. It is
// injected into the writer so tests can run with zero pacing.
type Pacer interface {
	Pause(ctx context.Context)
}

// NopPacer never pauses.
type NopPacer struct{}

// Pause returns immediately.
func (NopPacer) Pause(context.Context) {}

type intervalPacer struct {
	limiter *rate.Limiter
}

// NewIntervalPacer returns a pacer that suspends the caller for roughly the
// given interval on every Pause. A non-positive interval disables pacing.
func NewIntervalPacer(interval time.Duration) Pacer {
	if interval <= 0 {
		return NopPacer{}
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	// Drain the initial token so the first Pause also waits a full interval.
	limiter.Allow()
	return &intervalPacer{limiter: limiter}
}

// Pause blocks until the limiter grants a token or the context is done.
func (p *intervalPacer) Pause(ctx context.Context) {
	_ = p.limiter.Wait(ctx)
}
