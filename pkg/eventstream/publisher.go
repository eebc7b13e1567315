package eventstream

import "context"

// Publisher publishes memory change events to an event stream backend.
type Publisher interface {
	Publish(ctx context.Context, event *MemoryChangedEvent) error

	// Close flushes and releases publisher resources.
	Close() error
}
