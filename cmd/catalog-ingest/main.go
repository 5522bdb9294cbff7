// Command catalog-ingest loads gzipped CSV product feeds into the catalog.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"

	"github.com/xenking/order-pipeline/internal/storage/postgres"
)

func main() {
	var (
		pattern     string
		databaseURL string
		batchSize   int
		capacity    uint
		fpRate      float64
	)

	flag.StringVar(&pattern, "feeds", "data/catalog*.csv.gz", "glob of gzipped sku,price,stock feeds; later feeds win on duplicate SKUs")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&batchSize, "batch-size", 1000, "rows per upsert batch")
	flag.UintVar(&capacity, "bloom-capacity", 10_000_000, "expected SKUs per feed")
	flag.Float64Var(&fpRate, "bloom-fp-rate", 0.001, "bloom filter false positive rate")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, pattern, databaseURL, batchSize, capacity, fpRate); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, pattern, databaseURL string, batchSize int, capacity uint, fpRate float64) error {
	feeds, err := filepath.Glob(pattern)
	if err != nil {
		return errors.Wrapf(err, "glob %q", pattern)
	}
	if len(feeds) == 0 {
		return errors.Errorf("no feeds match %q", pattern)
	}
	if batchSize < 1 {
		return errors.Errorf("batch size must be positive, got %d", batchSize)
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL, postgres.PoolConfig{})
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	in := &ingester{
		writer:    postgres.NewProductRepository(postgres.NewAcquirer(pool, postgres.DefaultRetryConfig)),
		batchSize: batchSize,
		capacity:  capacity,
		fpRate:    fpRate,
	}
	st, err := in.run(ctx, feeds)
	if err != nil {
		return err
	}
	slog.Info("feeds loaded",
		slog.Int("feeds", len(feeds)),
		slog.Uint64("rows", st.Rows),
		slog.Uint64("written", st.Written),
		slog.Int("cross_feed_duplicates", st.Conflicts),
	)
	return nil
}
