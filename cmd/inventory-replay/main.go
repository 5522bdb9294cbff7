// Command inventory-replay applies stock adjustments that failed after their
// orders were committed.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/order-pipeline/internal/storage/postgres"
	redisledger "github.com/xenking/order-pipeline/internal/storage/redis"
)

func main() {
	var (
		databaseURL string
		redisURL    string
		key         string
		limit       int64
		dryRun      bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&redisURL, "redis-url", "", "Redis URL of the failure ledger (or REDIS_URL env)")
	flag.StringVar(&key, "key", redisledger.DefaultKey, "ledger sorted set key")
	flag.Int64Var(&limit, "limit", 1000, "maximum adjustments to replay")
	flag.BoolVar(&dryRun, "dry-run", false, "list pending adjustments without applying them")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if redisURL == "" {
		redisURL = os.Getenv("REDIS_URL")
	}
	if databaseURL == "" || redisURL == "" {
		slog.Error("database and redis URLs are required: set --database-url/--redis-url or DATABASE_URL/REDIS_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, redisURL, key, limit, dryRun); err != nil {
		slog.Error("inventory replay failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL, redisURL, key string, limit int64, dryRun bool) error {
	if limit < 1 {
		return errors.Errorf("limit must be positive, got %d", limit)
	}

	ledger, err := redisledger.Connect(ctx, redisURL, key)
	if err != nil {
		return errors.Wrap(err, "connect to redis")
	}
	defer func() { _ = ledger.Close() }()

	pool, err := postgres.NewPool(ctx, databaseURL, postgres.PoolConfig{})
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	inv := postgres.NewInventoryRepository(postgres.NewAcquirer(pool, postgres.DefaultRetryConfig))
	st, err := replay(ctx, ledger, inv, limit, dryRun)
	slog.Info("inventory replay finished",
		slog.Int("applied", st.Applied),
		slog.Int("failed", st.Failed),
		slog.Bool("dry_run", dryRun),
	)
	return err
}
