// Package kafka publishes domain events to Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/xenking/order-pipeline/internal/messaging"
)

var _ messaging.Publisher = (*Publisher)(nil)

// jxEncoder is implemented by events that know how to write themselves.
type jxEncoder interface {
	Encode(e *jx.Encoder)
}

// Config configures the Kafka publisher.
type Config struct {
	Brokers      []string
	WriteTimeout time.Duration
}

// Publisher writes events with a single long-lived writer. The topic is set
// per message.
type Publisher struct {
	w *kafkago.Writer
}

// NewPublisher creates a Publisher for the given brokers.
func NewPublisher(cfg Config) *Publisher {
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Publisher{
		w: &kafkago.Writer{
			Addr:                   kafkago.TCP(cfg.Brokers...),
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireOne,
			WriteTimeout:           cfg.WriteTimeout,
			AllowAutoTopicCreation: true,
		},
	}
}

// PublishEvent serializes event and writes it to topic under key.
func (p *Publisher) PublishEvent(ctx context.Context, topic, key string, event any) error {
	payload, err := encode(event)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	if err := p.w.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	}); err != nil {
		return errors.Wrapf(err, "write to %s", topic)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}

func encode(event any) ([]byte, error) {
	if v, ok := event.(jxEncoder); ok {
		e := &jx.Encoder{}
		v.Encode(e)
		return e.Bytes(), nil
	}
	return json.Marshal(event)
}
