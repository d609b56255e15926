package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/chaintrace-systems/chaintrace-stack/common/messaging"
)

// consumerNakDelay is how long a failed anchor job sits before JetStream
// redelivers it. Ledger outages tend to last seconds, not milliseconds.
const consumerNakDelay = 5 * time.Second

// JetStreamClient layers durable streams on top of the core Client. The
// embedded Client keeps it usable anywhere a messaging.Client is expected,
// so a service can publish fire-and-forget events and consume durable work
// through the same connection.
type JetStreamClient struct {
	*Client
	js jetstream.JetStream
}

// StreamConfig describes one durable stream. It is a narrow slice of the
// jetstream.StreamConfig surface: just the knobs the pipeline actually sets.
type StreamConfig struct {
	Name     string
	Subjects []string

	// MaxAge, MaxBytes and MaxMsgs bound retention; whichever limit is hit
	// first wins.
	MaxAge   time.Duration
	MaxBytes int64
	MaxMsgs  int64

	Retention jetstream.RetentionPolicy
	Storage   jetstream.StorageType
}

// ConsumerConfig describes one durable pull consumer.
type ConsumerConfig struct {
	// Name doubles as the durable name, so restarts resume from the last
	// acknowledged message.
	Name string

	// FilterSubject narrows the consumer to a subset of the stream.
	FilterSubject string

	AckWait       time.Duration
	MaxDeliver    int
	MaxAckPending int
}

// DefaultConsumerConfig returns the settings the anchor workers run with:
// three delivery attempts with a 30s ack window, at most 100 jobs in flight.
func DefaultConsumerConfig(name, filterSubject string) ConsumerConfig {
	return ConsumerConfig{
		Name:          name,
		FilterSubject: filterSubject,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
		MaxAckPending: 100,
	}
}

// NewJetStreamClient connects to the broker and opens a JetStream context
// over the same connection.
func NewJetStreamClient(cfg Config) (*JetStreamClient, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(client.conn)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("open jetstream context: %w", err)
	}

	return &JetStreamClient{Client: client, js: js}, nil
}

// CreateOrUpdateStream declares a stream, reconciling its configuration if
// it already exists. Safe to call on every service start.
func (c *JetStreamClient) CreateOrUpdateStream(ctx context.Context, cfg StreamConfig) (jetstream.Stream, error) {
	stream, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Name,
		Subjects:  cfg.Subjects,
		MaxAge:    cfg.MaxAge,
		MaxBytes:  cfg.MaxBytes,
		MaxMsgs:   cfg.MaxMsgs,
		Retention: cfg.Retention,
		Storage:   cfg.Storage,
	})
	if err != nil {
		return nil, fmt.Errorf("declare stream %s: %w", cfg.Name, err)
	}
	return stream, nil
}

// CreateOrUpdateConsumer declares a durable consumer on streamName.
// Acknowledgement is always explicit: a job is only done once the handler
// says so.
func (c *JetStreamClient) CreateOrUpdateConsumer(ctx context.Context, streamName string, cfg ConsumerConfig) (jetstream.Consumer, error) {
	stream, err := c.js.Stream(ctx, streamName)
	if err != nil {
		return nil, fmt.Errorf("lookup stream %s: %w", streamName, err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          cfg.Name,
		Durable:       cfg.Name,
		FilterSubject: cfg.FilterSubject,
		AckWait:       cfg.AckWait,
		MaxDeliver:    cfg.MaxDeliver,
		MaxAckPending: cfg.MaxAckPending,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("declare consumer %s on %s: %w", cfg.Name, streamName, err)
	}
	return consumer, nil
}

// ConsumeMessages runs handler against a previously declared durable
// consumer. A nil return acknowledges the message; an error naks it with a
// short delay so the job is retried rather than lost. The returned stop
// function drains the consumer and must be called on shutdown.
func (c *JetStreamClient) ConsumeMessages(ctx context.Context, streamName, consumerName string, handler messaging.MessageHandler) (func(), error) {
	stream, err := c.js.Stream(ctx, streamName)
	if err != nil {
		return nil, fmt.Errorf("lookup stream %s: %w", streamName, err)
	}

	consumer, err := stream.Consumer(ctx, consumerName)
	if err != nil {
		return nil, fmt.Errorf("lookup consumer %s: %w", consumerName, err)
	}

	consumeCtx, cancel := context.WithCancel(ctx)

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		m := &messaging.Message{
			Subject:   msg.Subject(),
			Data:      msg.Data(),
			Timestamp: time.Now(),
		}
		if headers := msg.Headers(); headers != nil {
			m.Metadata = make(map[string]string, len(headers))
			for k := range headers {
				m.Metadata[k] = headers.Get(k)
			}
		}

		if err := handler(consumeCtx, m); err != nil {
			_ = msg.NakWithDelay(consumerNakDelay)
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start consumer %s: %w", consumerName, err)
	}

	return func() {
		cancel()
		cons.Stop()
	}, nil
}

// Stream definitions shared by the detect and anchor services. Both are
// declared idempotently by the anchor service on start.
var (
	// AnchorJobsStream holds anomaly-created events until a worker anchors
	// them. Work-queue retention means each anomaly is anchored exactly once
	// no matter how many anchor instances are running.
	AnchorJobsStream = StreamConfig{
		Name:      "ANCHOR_JOBS",
		Subjects:  []string{"detect.anomalies.>"},
		MaxAge:    24 * time.Hour,
		MaxBytes:  100 * 1024 * 1024,
		MaxMsgs:   100000,
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	}

	// AnchorEventsStream fans anchor lifecycle events out to any interested
	// observers; messages are dropped once every bound consumer has acked.
	AnchorEventsStream = StreamConfig{
		Name:      "ANCHOR_EVENTS",
		Subjects:  []string{"anchor.>"},
		MaxAge:    24 * time.Hour,
		MaxBytes:  100 * 1024 * 1024,
		MaxMsgs:   100000,
		Retention: jetstream.InterestPolicy,
		Storage:   jetstream.FileStorage,
	}
)
