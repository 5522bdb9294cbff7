// Package redis stores failed inventory adjustments for later replay.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/order-pipeline/internal/domain/order"
)

// DefaultKey is the sorted set holding pending adjustments, scored by
// failure time.
const DefaultKey = "orders:inventory:failed"

var _ order.FailureLedger = (*Ledger)(nil)

// Entry is a pending adjustment read back from the ledger.
type Entry struct {
	order.AdjustmentFailure
	member string
}

// Ledger is a Redis-backed order.FailureLedger.
type Ledger struct {
	client redis.UniversalClient
	key    string
}

// Connect parses redisURL, connects and pings the server. An empty key
// selects DefaultKey.
func Connect(ctx context.Context, redisURL, key string) (*Ledger, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return NewLedger(client, key), nil
}

// NewLedger wraps an existing client.
func NewLedger(client redis.UniversalClient, key string) *Ledger {
	if key == "" {
		key = DefaultKey
	}
	return &Ledger{client: client, key: key}
}

// Record stores f as pending.
func (l *Ledger) Record(ctx context.Context, f order.AdjustmentFailure) error {
	member, err := encodeFailure(f)
	if err != nil {
		return err
	}
	if err := l.client.ZAdd(ctx, l.key, redis.Z{
		Score:  float64(f.FailedAt.UnixNano()),
		Member: member,
	}).Err(); err != nil {
		return errors.Wrap(err, "zadd")
	}
	return nil
}

// Pending returns up to limit oldest pending adjustments.
func (l *Ledger) Pending(ctx context.Context, limit int64) ([]Entry, error) {
	members, err := l.client.ZRange(ctx, l.key, 0, limit-1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "zrange")
	}
	entries := make([]Entry, 0, len(members))
	for _, m := range members {
		f, err := decodeFailure(m)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{AdjustmentFailure: f, member: m})
	}
	return entries, nil
}

// Resolve removes an applied entry.
func (l *Ledger) Resolve(ctx context.Context, e Entry) error {
	if err := l.client.ZRem(ctx, l.key, e.member).Err(); err != nil {
		return errors.Wrap(err, "zrem")
	}
	return nil
}

// Ping checks connectivity.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (l *Ledger) Close() error {
	return l.client.Close()
}

type failureJSON struct {
	OrderID  string    `json:"orderId"`
	SKU      string    `json:"sku"`
	Quantity int       `json:"quantity"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failedAt"`
}

func encodeFailure(f order.AdjustmentFailure) (string, error) {
	b, err := json.Marshal(failureJSON(f))
	if err != nil {
		return "", errors.Wrap(err, "marshal adjustment failure")
	}
	return string(b), nil
}

func decodeFailure(member string) (order.AdjustmentFailure, error) {
	var f failureJSON
	if err := json.Unmarshal([]byte(member), &f); err != nil {
		return order.AdjustmentFailure{}, errors.Wrap(err, "unmarshal adjustment failure")
	}
	return order.AdjustmentFailure(f), nil
}
