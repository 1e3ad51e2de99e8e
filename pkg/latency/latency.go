// Package latency simulates the round trip of a remote call so local stores
// behave like the network services they stand in for.
package latency

import (
	"context"
	"time"
)

// Simulator scales every requested delay. A zero value never waits.
type Simulator struct {
	Scale float64
}

func New(scale float64) Simulator {
	if scale < 0 {
		scale = 0
	}
	return Simulator{Scale: scale}
}

// Wait blocks for base*Scale or until ctx is done.
func (s Simulator) Wait(ctx context.Context, base time.Duration) error {
	d := time.Duration(float64(base) * s.Scale)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
