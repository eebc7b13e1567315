// Package eventstream defines transport-neutral change events for the
// memory store. Publishing is a caller-side concern: the layer driving the
// store decides when to emit, the store itself stays synchronous.
package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/keepsakeco/keepsake/pkg/memory"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeMemorySaved is emitted after a record is upserted.
	EventTypeMemorySaved = "keepsake.memory.saved"

	// EventTypeMemoryDeleted is emitted after a record is removed.
	EventTypeMemoryDeleted = "keepsake.memory.deleted"
)

// MemoryChangedEvent is the payload emitted for a saved or deleted record.
// For deletions only RecordID is populated.
type MemoryChangedEvent struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	EventID       string         `json:"event_id"`
	EmittedAt     time.Time      `json:"emitted_at"`
	Backend       string         `json:"backend"`
	RecordID      string         `json:"record_id"`
	Record        *memory.Record `json:"record,omitempty"`
}

// NewSavedEvent builds a saved event for the record.
func NewSavedEvent(backend string, rec *memory.Record) *MemoryChangedEvent {
	return &MemoryChangedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeMemorySaved,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Backend:       backend,
		RecordID:      rec.ID,
		Record:        rec,
	}
}

// NewDeletedEvent builds a deleted event for the record ID.
func NewDeletedEvent(backend, recordID string) *MemoryChangedEvent {
	return &MemoryChangedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeMemoryDeleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Backend:       backend,
		RecordID:      recordID,
	}
}
