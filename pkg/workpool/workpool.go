// Package workpool bounds the number of concurrent blocking operations.
package workpool

import (
	"context"
	"sync/atomic"

	"github.com/go-faster/errors"
	"golang.org/x/sync/semaphore"
)

// Pool runs functions with at most Size of them in flight. Callers beyond the
// limit wait for a slot until their context is done.
type Pool struct {
	sem      *semaphore.Weighted
	size     int64
	inFlight atomic.Int64
}

// New creates a Pool with size slots. Size below 1 is treated as 1.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: int64(size),
	}
}

// Do waits for a free slot and runs fn in it.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return errors.Wrap(err, "wait for worker")
	}
	p.inFlight.Add(1)
	defer func() {
		p.inFlight.Add(-1)
		p.sem.Release(1)
	}()
	return fn(ctx)
}

// Size returns the number of slots.
func (p *Pool) Size() int { return int(p.size) }

// InFlight returns the number of functions currently running.
func (p *Pool) InFlight() int { return int(p.inFlight.Load()) }

// Saturation returns InFlight / Size.
func (p *Pool) Saturation() float64 {
	return float64(p.inFlight.Load()) / float64(p.size)
}
