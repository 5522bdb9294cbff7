// Package messaging defines the event publishing contract.
package messaging

import "context"

// TopicOrderCreated carries one message per committed order, keyed by order id.
const TopicOrderCreated = "orders.created"

// Publisher publishes domain events.
type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) PublishEvent(context.Context, string, string, any) error { return nil }
