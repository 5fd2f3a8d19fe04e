package messaging

import (
	"context"
)

// Publisher sends a message to a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// Broker defines the interface for message brokers
type Broker interface {
	Publisher
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// NopPublisher drops every message. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
