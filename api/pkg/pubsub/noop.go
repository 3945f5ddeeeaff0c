package pubsub

import (
	"context"
)

// NoopPubSub discards every message. Servers built without a broker use it,
// so cancel requests only reach test runs streamed by the same process and
// agent update notices go nowhere.
type NoopPubSub struct{}

var _ PubSub = &NoopPubSub{}

func NewNoop() *NoopPubSub {
	return &NoopPubSub{}
}

func (n *NoopPubSub) Publish(_ context.Context, _ string, _ []byte) error {
	return nil
}

func (n *NoopPubSub) Subscribe(_ context.Context, _ string, _ func(payload []byte) error) (Subscription, error) {
	return &noopSubscription{}, nil
}

func (n *NoopPubSub) Close() error {
	return nil
}

type noopSubscription struct{}

func (s *noopSubscription) Unsubscribe() error { return nil }
