package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-pipeline/internal/domain/product"
)

// streamFeed opens a gzip-compressed CSV feed of sku,price,stock rows and
// calls fn for each row. A leading header row starting with "sku" is skipped.
func streamFeed(ctx context.Context, path string, fn func(p product.Product) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	r := csv.NewReader(gz)
	r.FieldsPerRecord = 3
	r.ReuseRecord = true
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "sku") {
			continue
		}
		p, err := parseRow(rec)
		if err != nil {
			return errors.Wrapf(err, "%s:%d", path, line)
		}
		if err := fn(p); err != nil {
			return err
		}
	}
}

func parseRow(rec []string) (product.Product, error) {
	sku := strings.TrimSpace(rec[0])
	if sku == "" {
		return product.Product{}, errors.New("empty sku")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(rec[1]))
	if err != nil {
		return product.Product{}, errors.Wrapf(err, "price of %q", sku)
	}
	if price.IsNegative() {
		return product.Product{}, errors.Errorf("price of %q is negative", sku)
	}
	stock, err := strconv.Atoi(strings.TrimSpace(rec[2]))
	if err != nil {
		return product.Product{}, errors.Wrapf(err, "stock of %q", sku)
	}
	return product.Product{
		SKU:   sku,
		Price: price.Round(2),
		Stock: stock,
	}, nil
}
