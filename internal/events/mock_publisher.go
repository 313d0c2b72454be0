package events

import (
	"context"
	"log/slog"
	"sync"
)

// MockEventPublisher records published events in memory. Used in tests and
// as a stand-in when Kafka is disabled.
type MockEventPublisher struct {
	mu        sync.Mutex
	published map[string][]interface{}
	logger    *slog.Logger
	closed    bool
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{
		published: make(map[string][]interface{}),
		logger:    logger,
	}
}

func (p *MockEventPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.published[topic] = append(p.published[topic], payload)
	if p.logger != nil {
		p.logger.DebugContext(ctx, "mock event published", "topic", topic)
	}
	return nil
}

func (p *MockEventPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Published returns the events recorded for a topic.
func (p *MockEventPublisher) Published(topic string) []interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]interface{}, len(p.published[topic]))
	copy(out, p.published[topic])
	return out
}
