package testutils

import (
	"context"
	"sync"

	"github.com/keepsakeco/keepsake/pkg/eventstream"
)

// MockPublisher records published events for assertions.
type MockPublisher struct {
	mu     sync.Mutex
	events []*eventstream.MemoryChangedEvent
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(_ context.Context, event *eventstream.MemoryChangedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)

	return nil
}

// Events returns a copy of everything published so far.
func (m *MockPublisher) Events() []*eventstream.MemoryChangedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*eventstream.MemoryChangedEvent, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MockPublisher) Close() error {
	return nil
}
