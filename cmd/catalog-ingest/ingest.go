package main

import (
	"context"
	"log/slog"
	"math/bits"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/order-pipeline/internal/domain/product"
)

const progressEvery = 1_000_000

// ingester loads catalog feeds. When a SKU appears in several feeds the row
// from the feed listed last wins.
type ingester struct {
	writer    product.Writer
	batchSize int
	capacity  uint
	fpRate    float64
}

// stats summarises one run.
type stats struct {
	Rows      uint64
	Written   uint64
	Conflicts int
}

// conflict is a row whose SKU may also be present in another feed.
type conflict struct {
	mask uint
	rows map[int]product.Product
}

func (in *ingester) run(ctx context.Context, feeds []string) (stats, error) {
	if len(feeds) > bits.UintSize {
		return stats{}, errors.Errorf("at most %d feeds per run, got %d", bits.UintSize, len(feeds))
	}

	// Pass 1: one bloom filter of SKUs per feed.
	slog.Info("pass 1: building bloom filters", slog.Int("feeds", len(feeds)))
	filters, err := in.buildFilters(ctx, feeds)
	if err != nil {
		return stats{}, errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: write rows unique to their feed, hold back possible duplicates.
	slog.Info("pass 2: writing unique rows")
	var (
		mu        sync.Mutex
		conflicts = make(map[string]*conflict)
		st        stats
	)
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range feeds {
		g.Go(func() error {
			fileBit := uint(1) << uint(i)
			held := make(map[string]product.Product)
			b := in.newBatch()
			var rows uint64

			err := streamFeed(gctx, path, func(p product.Product) error {
				rows++
				if rows%progressEvery == 0 {
					slog.Info("pass 2 progress", slog.String("feed", path), slog.Uint64("rows", rows))
				}
				for j, f := range filters {
					if j != i && f.TestString(p.SKU) {
						held[p.SKU] = p
						return nil
					}
				}
				return b.add(gctx, p)
			})
			if err == nil {
				err = b.flush(gctx)
			}
			if err != nil {
				return errors.Wrapf(err, "feed %s", path)
			}

			mu.Lock()
			defer mu.Unlock()
			st.Rows += rows
			st.Written += b.written
			for sku, p := range held {
				c, ok := conflicts[sku]
				if !ok {
					c = &conflict{rows: make(map[int]product.Product, 2)}
					conflicts[sku] = c
				}
				c.mask |= fileBit
				c.rows[i] = p
			}
			slog.Info("pass 2 complete",
				slog.String("feed", path),
				slog.Uint64("rows", rows),
				slog.Int("held", len(held)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return st, err
	}

	// Resolve held rows: the highest feed index wins.
	b := in.newBatch()
	for _, c := range conflicts {
		winner := bits.Len(c.mask) - 1
		if bits.OnesCount(c.mask) > 1 {
			st.Conflicts++
		}
		if err := b.add(ctx, c.rows[winner]); err != nil {
			return st, err
		}
	}
	if err := b.flush(ctx); err != nil {
		return st, err
	}
	st.Written += b.written
	return st, nil
}

func (in *ingester) buildFilters(ctx context.Context, feeds []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(feeds))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range feeds {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(in.capacity, in.fpRate)
			var rows uint64
			if err := streamFeed(ctx, path, func(p product.Product) error {
				filter.AddString(p.SKU)
				rows++
				return nil
			}); err != nil {
				return err
			}
			slog.Info("pass 1 complete", slog.String("feed", path), slog.Uint64("rows", rows))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

type batch struct {
	writer  product.Writer
	size    int
	rows    []product.Product
	written uint64
}

func (in *ingester) newBatch() *batch {
	return &batch{
		writer: in.writer,
		size:   in.batchSize,
		rows:   make([]product.Product, 0, in.batchSize),
	}
}

func (b *batch) add(ctx context.Context, p product.Product) error {
	b.rows = append(b.rows, p)
	if len(b.rows) >= b.size {
		return b.flush(ctx)
	}
	return nil
}

func (b *batch) flush(ctx context.Context) error {
	if len(b.rows) == 0 {
		return nil
	}
	if err := b.writer.Upsert(ctx, b.rows); err != nil {
		return errors.Wrap(err, "upsert products")
	}
	b.written += uint64(len(b.rows))
	b.rows = b.rows[:0]
	return nil
}
