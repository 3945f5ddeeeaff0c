package pubsub

import (
	"context"
)

type Publisher interface {
	// Publish topic to message broker with payload.
	Publish(ctx context.Context, topic string, payload []byte) error
}

type PubSub interface {
	Publisher
	Subscribe(ctx context.Context, topic string, handler func(payload []byte) error) (Subscription, error)
	Close() error
}

type Subscription interface {
	Unsubscribe() error
}

// GetTestRunCancelTopic is where a cancel request for a running test run is
// delivered to whichever handler is streaming it.
func GetTestRunCancelTopic(runID string) string {
	return "test-run-cancel." + runID
}

// GetAgentUpdatesTopic carries the new version token after an agent's
// instructions were saved.
func GetAgentUpdatesTopic(agentID string) string {
	return "agent-updates." + agentID
}
