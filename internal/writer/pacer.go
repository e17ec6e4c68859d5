package writer

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces consecutive writes.
type Pacer interface {
	Wait(ctx context.Context) error
}

// RatePacer allows one write per interval.
type RatePacer struct {
	limiter *rate.Limiter
}

func NewRatePacer(interval time.Duration) *RatePacer {
	return &RatePacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// NoopPacer never waits. Used by tests and dry runs.
type NoopPacer struct{}

func (NoopPacer) Wait(context.Context) error { return nil }

// NewPacer returns a RatePacer, or a NoopPacer when interval is not positive.
func NewPacer(interval time.Duration) Pacer {
	if interval <= 0 {
		return NoopPacer{}
	}
	return NewRatePacer(interval)
}
