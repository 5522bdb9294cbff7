package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// Pinger is anything with a connectivity probe, such as a pgx pool or a
// Redis client wrapper.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck reports the result of p.Ping.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

// SaturationCheck fails when usage() reaches max. usage is a fraction in [0, 1].
func SaturationCheck(usage func() float64, max float64) CheckFunc {
	return func(_ context.Context) error {
		if u := usage(); u >= max {
			return errors.Errorf("saturation %.2f reached limit %.2f", u, max)
		}
		return nil
	}
}

// GoroutineCountCheck fails when the goroutine count exceeds threshold.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}
