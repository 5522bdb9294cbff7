// Command seed-db loads an initial product catalog from a JSON file, plain
// or gzip-compressed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-pipeline/internal/domain/product"
	"github.com/xenking/order-pipeline/internal/storage/postgres"
)

type productJSON struct {
	SKU   string          `json:"sku"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file (.json or .json.gz)")
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

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	products, err := readProducts(productsFile)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL, postgres.PoolConfig{})
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewProductRepository(postgres.NewAcquirer(pool, postgres.DefaultRetryConfig))
	slog.Info("upserting products", slog.Int("count", len(products)))
	if err := repo.Upsert(ctx, products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	return nil
}

func readProducts(path string) ([]product.Product, error) {
	slog.Info("reading products file", slog.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open products file")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "create gzip reader")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	var rows []productJSON
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}

	products := make([]product.Product, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for i, p := range rows {
		if p.SKU == "" {
			return nil, errors.Errorf("product %d: empty sku", i)
		}
		if _, ok := seen[p.SKU]; ok {
			return nil, errors.Errorf("product %d: duplicate sku %q", i, p.SKU)
		}
		if p.Price.IsNegative() {
			return nil, errors.Errorf("product %q: negative price", p.SKU)
		}
		seen[p.SKU] = struct{}{}
		products = append(products, product.Product{
			SKU:   p.SKU,
			Price: p.Price.Round(2),
			Stock: p.Stock,
		})
	}
	return products, nil
}
