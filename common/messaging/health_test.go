package messaging

import (
	"context"
	"testing"
	"time"
)

type stubClient struct {
	connected bool
}

func (s *stubClient) Publish(context.Context, string, []byte) error { return nil }
func (s *stubClient) PublishMsg(context.Context, *Message) error    { return nil }
func (s *stubClient) Request(context.Context, string, []byte, time.Duration) (*Message, error) {
	return nil, nil
}
func (s *stubClient) Subscribe(string, MessageHandler) (Subscription, error) { return nil, nil }
func (s *stubClient) QueueSubscribe(string, string, MessageHandler) (Subscription, error) {
	return nil, nil
}
func (s *stubClient) Close() error      { return nil }
func (s *stubClient) Drain() error      { return nil }
func (s *stubClient) IsConnected() bool { return s.connected }

func TestCheckBroker_NilClientIsDisabled(t *testing.T) {
	status := CheckBroker(nil)
	if status.Enabled {
		t.Error("nil client should report disabled")
	}
	if status.Error != "" {
		t.Errorf("disabled broker should not report an error, got %q", status.Error)
	}
}

func TestCheckBroker_Connected(t *testing.T) {
	status := CheckBroker(&stubClient{connected: true})
	if !status.Enabled || !status.Connected {
		t.Errorf("expected enabled and connected, got %+v", status)
	}
	if status.Error != "" {
		t.Errorf("healthy broker should not report an error, got %q", status.Error)
	}
}

func TestCheckBroker_Disconnected(t *testing.T) {
	status := CheckBroker(&stubClient{connected: false})
	if !status.Enabled {
		t.Error("non-nil client should report enabled")
	}
	if status.Connected {
		t.Error("disconnected client should not report connected")
	}
	if status.Error == "" {
		t.Error("disconnected broker should report an error")
	}
}
