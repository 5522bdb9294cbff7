package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xenking/order-pipeline/internal/domain/order"
)

// RetryConfig bounds connection acquisition retries.
type RetryConfig struct {
	// MaxAttempts is the total number of acquisition attempts.
	MaxAttempts int
	// BaseDelay is multiplied by the attempt number to get the pause after
	// a failed attempt.
	BaseDelay time.Duration
}

// DefaultRetryConfig makes 3 attempts pausing 100ms then 200ms.
var DefaultRetryConfig = RetryConfig{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond}

type acquireFunc func(ctx context.Context) (*pgxpool.Conn, error)

// Acquirer hands out pooled connections, retrying failed acquisitions with
// linear backoff. Exhausted retries fail with order.ErrResourceUnavailable.
type Acquirer struct {
	acquire acquireFunc
	cfg     RetryConfig
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewAcquirer creates an Acquirer over pool.
func NewAcquirer(pool *pgxpool.Pool, cfg RetryConfig) *Acquirer {
	return newAcquirer(pool.Acquire, cfg)
}

func newAcquirer(fn acquireFunc, cfg RetryConfig) *Acquirer {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Acquirer{
		acquire: fn,
		cfg:     cfg,
		sleep:   sleepContext,
	}
}

// Acquire returns a connection that the caller must Release.
func (a *Acquirer) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	var (
		lastErr error
		attempt int
	)
	for attempt = 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		conn, err := a.acquire(ctx)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if ctx.Err() != nil || attempt == a.cfg.MaxAttempts {
			break
		}

		delay := a.cfg.BaseDelay * time.Duration(attempt)
		zctx.From(ctx).Warn("Database connection attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := a.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}
	attempt = min(attempt, a.cfg.MaxAttempts)
	return nil, order.ResourceUnavailable(errors.Wrapf(lastErr, "acquire connection after %d attempts", attempt))
}

// With acquires a connection, runs fn with it and releases it.
func (a *Acquirer) With(ctx context.Context, fn func(conn *pgxpool.Conn) error) error {
	conn, err := a.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return fn(conn)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
