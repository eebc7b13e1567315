// Package memory defines the record model shared by every storage backend.
//
// A Record is the unit of persistence: a piece of text an agent wants to
// remember, classified as episodic (a specific event), semantic (a fact), or
// temporal (a time marker). Records are independent entities — OwnerID and
// SessionID are flat grouping labels, not foreign keys.
package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a memory record. The set is closed; unknown values fail
// validation.
type Kind string

const (
	// KindEpisodic marks a specific event or interaction.
	KindEpisodic Kind = "episodic"

	// KindSemantic marks a fact or piece of knowledge.
	KindSemantic Kind = "semantic"

	// KindTemporal marks a time-based event.
	KindTemporal Kind = "temporal"
)

// ParseKind converts a wire value into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindEpisodic, KindSemantic, KindTemporal:
		return Kind(s), nil
	default:
		return "", &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", s)}
	}
}

// Valid reports whether k is one of the three supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindEpisodic, KindSemantic, KindTemporal:
		return true
	}
	return false
}

// DefaultImportance is assigned to records created without an explicit score.
const DefaultImportance = 5.0

// Record is a single memory entry.
type Record struct {
	// ID uniquely identifies the record within a backend. Generated at
	// creation, immutable afterwards.
	ID string `json:"id"`

	// Content is the text payload. May be empty; the contract enforces no
	// length ceiling.
	Content string `json:"content"`

	// Kind classifies the record.
	Kind Kind `json:"kind"`

	// OwnerID identifies the agent that owns the record. Empty means
	// unscoped.
	OwnerID string `json:"owner_id,omitempty"`

	// SessionID groups records from one interaction session.
	SessionID string `json:"session_id,omitempty"`

	// CreatedAt is set at creation and never mutated.
	CreatedAt time.Time `json:"created_at"`

	// Metadata is an open string-keyed map of JSON-serializable values.
	Metadata map[string]any `json:"metadata,omitempty"`

	// Embedding is the vector representation of Content. Backends that
	// perform similarity search generate one at save time when absent.
	Embedding []float32 `json:"embedding,omitempty"`

	// Importance is a caller-side ranking score in [0, 10]. The store never
	// alters it.
	Importance float64 `json:"importance"`

	// Tags is an ordered list of labels. Duplicates are allowed.
	Tags []string `json:"tags,omitempty"`

	// LastAccessed is NOT updated automatically on read. Callers that want
	// access tracking must write it explicitly.
	LastAccessed *time.Time `json:"last_accessed,omitempty"`
}

// New creates a record with a generated ID, the current creation time, and
// the default importance score.
func New(content string, kind Kind) *Record {
	return &Record{
		ID:         uuid.NewString(),
		Content:    content,
		Kind:       kind,
		CreatedAt:  time.Now().UTC(),
		Importance: DefaultImportance,
	}
}

// Validate checks the record invariants: a non-empty ID, a known kind, a
// creation timestamp, and an importance score within [0, 10].
func (r *Record) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if !r.Kind.Valid() {
		return &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", r.Kind)}
	}
	if r.CreatedAt.IsZero() {
		return &ValidationError{Field: "created_at", Reason: "must be set"}
	}
	if r.Importance < 0 || r.Importance > 10 {
		return &ValidationError{Field: "importance", Reason: fmt.Sprintf("%v outside [0, 10]", r.Importance)}
	}
	return nil
}

// Tier buckets the importance score. Thresholds are fixed at low <= 3 <
// medium <= 7 < high.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Tier returns the importance tier of the record.
func (r *Record) Tier() Tier {
	switch {
	case r.Importance <= 3:
		return TierLow
	case r.Importance <= 7:
		return TierMedium
	default:
		return TierHigh
	}
}
