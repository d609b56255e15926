// Package nats backs the messaging interfaces with NATS. Core NATS carries
// the anchor result events; JetStream (jetstream.go) carries the durable
// anomaly work queue.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/chaintrace-systems/chaintrace-stack/common/messaging"
)

// Config holds the NATS connection settings.
type Config struct {
	// URL of the NATS server, e.g. "nats://localhost:4222".
	URL string

	// Name identifies this client on the server, e.g. "chaintrace-detect".
	Name string

	// MaxReconnects caps reconnection attempts; -1 retries forever.
	MaxReconnects int

	// ReconnectWait is the pause between reconnection attempts.
	ReconnectWait time.Duration

	// Timeout bounds the initial connect.
	Timeout time.Duration
}

// DefaultConfig returns the connection defaults services start from.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "chaintrace-client",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// Client implements messaging.Client over a core NATS connection.
type Client struct {
	conn *nats.Conn
	mu   sync.RWMutex
	subs []*subscription
}

// NewClient connects to NATS. Disconnects and reconnects are logged through
// the default logger so they surface in the service's structured output.
func NewClient(cfg Config) (*Client, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &Client{conn: conn}, nil
}

func (c *Client) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.conn.Publish(subject, data)
}

func (c *Client) PublishMsg(ctx context.Context, msg *messaging.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out := &nats.Msg{
		Subject: msg.Subject,
		Data:    msg.Data,
		Reply:   msg.Reply,
	}
	if len(msg.Metadata) > 0 {
		out.Header = make(nats.Header, len(msg.Metadata))
		for k, v := range msg.Metadata {
			out.Header.Set(k, v)
		}
	}
	return c.conn.PublishMsg(out)
}

func (c *Client) Request(ctx context.Context, subject string, data []byte, timeout time.Duration) (*messaging.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := c.conn.Request(subject, data, timeout)
	if err != nil {
		return nil, err
	}
	return fromNATS(resp), nil
}

func (c *Client) Subscribe(subject string, handler messaging.MessageHandler) (messaging.Subscription, error) {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(context.Background(), fromNATS(msg)); err != nil {
			slog.Error("message handler failed", "subject", subject, "error", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return c.track(sub), nil
}

func (c *Client) QueueSubscribe(subject, queue string, handler messaging.MessageHandler) (messaging.Subscription, error) {
	sub, err := c.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		if err := handler(context.Background(), fromNATS(msg)); err != nil {
			slog.Error("message handler failed", "subject", subject, "queue", queue, "error", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return c.track(sub), nil
}

func (c *Client) track(sub *nats.Subscription) *subscription {
	s := &subscription{natsSub: sub}
	c.mu.Lock()
	c.subs = append(c.subs, s)
	c.mu.Unlock()
	return s
}

// Close unsubscribes everything and drops the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.subs = nil

	c.conn.Close()
	return nil
}

// Drain lets in-flight messages finish before closing.
func (c *Client) Drain() error {
	return c.conn.Drain()
}

func (c *Client) IsConnected() bool {
	return c.conn.IsConnected()
}

type subscription struct {
	natsSub *nats.Subscription
}

func (s *subscription) Unsubscribe() error {
	return s.natsSub.Unsubscribe()
}

func (s *subscription) Subject() string {
	return s.natsSub.Subject
}

func (s *subscription) IsValid() bool {
	return s.natsSub.IsValid()
}

// fromNATS converts a wire message. Core NATS carries no publish timestamp,
// so receipt time stands in.
func fromNATS(msg *nats.Msg) *messaging.Message {
	m := &messaging.Message{
		Subject:   msg.Subject,
		Data:      msg.Data,
		Reply:     msg.Reply,
		Timestamp: time.Now(),
	}
	if msg.Header != nil {
		m.Metadata = make(map[string]string, len(msg.Header))
		for k := range msg.Header {
			m.Metadata[k] = msg.Header.Get(k)
		}
	}
	return m
}
