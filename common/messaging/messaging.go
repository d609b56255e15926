// Package messaging defines the broker-facing contracts the ChainTrace
// services share: detect publishes anomaly-created events, anchor consumes
// them from a work queue and publishes anchoring results. Services depend on
// these interfaces, never on a broker client directly, so deployments without
// a broker swap in nil and keep working.
package messaging

import (
	"context"
	"time"
)

// Message is one unit on the wire.
type Message struct {
	// Subject the message was published to.
	Subject string

	// Data is the raw payload, JSON for all ChainTrace events.
	Data []byte

	// Reply is the response subject for request/reply exchanges, if any.
	Reply string

	// Metadata carries optional message headers.
	Metadata map[string]string

	// Timestamp is when the message was published.
	Timestamp time.Time
}

// MessageHandler processes one received message. A non-nil error marks the
// message as failed; queue consumers NAK it for redelivery.
type MessageHandler func(ctx context.Context, msg *Message) error

// Subscription is an active listener on a subject.
type Subscription interface {
	// Unsubscribe stops delivery on this subscription.
	Unsubscribe() error

	// Subject this subscription listens on.
	Subject() string

	// IsValid reports whether the subscription still delivers.
	IsValid() bool
}

// Publisher emits messages. The anchor service accepts any Publisher for its
// result events; a nil Publisher means events are skipped, never an error.
type Publisher interface {
	// Publish sends fire-and-forget data to a subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishMsg sends a full Message, headers included.
	PublishMsg(ctx context.Context, msg *Message) error

	// Request publishes and waits up to timeout for a reply.
	Request(ctx context.Context, subject string, data []byte, timeout time.Duration) (*Message, error)

	// Close releases the publisher's resources.
	Close() error
}

// Subscriber receives messages.
type Subscriber interface {
	// Subscribe delivers every message on the subject (fan-out).
	Subscribe(subject string, handler MessageHandler) (Subscription, error)

	// QueueSubscribe load-balances messages across members of the queue
	// group; each message is handled by exactly one member.
	QueueSubscribe(subject, queue string, handler MessageHandler) (Subscription, error)

	// Close unsubscribes everything and releases resources.
	Close() error
}

// Client is a full broker connection.
type Client interface {
	Publisher
	Subscriber

	// Drain closes gracefully, letting in-flight messages finish first.
	Drain() error

	// IsConnected reports the live connection state.
	IsConnected() bool
}
