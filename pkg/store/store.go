// Package store defines the contract every memory backend must satisfy.
//
// The Store interface is the only surface callers depend on; concrete
// backends live in subpackages (sqlite, postgres, qdrant) and are constructed
// through pkg/store/utils. Callers never branch on backend identity.
package store

import (
	"context"
	"time"

	"github.com/keepsakeco/keepsake/pkg/memory"
)

// Default result bounds applied when a query leaves Limit at zero.
const (
	DefaultSearchLimit   = 50
	DefaultTimelineLimit = 100
	DefaultListAllLimit  = 10000
)

// SearchQuery filters and ranks records. Query drives backend-specific
// relevance: substring containment on the sqlite backend, cosine
// nearest-neighbor on the qdrant backend, full-text rank on the postgres
// backend. The remaining fields are exact-match filters combined with AND.
type SearchQuery struct {
	Query     string
	Kind      memory.Kind
	OwnerID   string
	SessionID string
	Limit     int
}

// TimelineQuery selects records chronologically. Bounds are inclusive; a nil
// bound leaves that side unbounded.
type TimelineQuery struct {
	OwnerID string
	Start   *time.Time
	End     *time.Time
	Limit   int
}

// Store is the operation set shared by all backends.
//
// Backend-level failures never surface as raw engine errors: mutating calls
// report false and log the cause, read calls return errors from the package
// taxonomy. A Save followed by a Get of the same ID on the same instance
// observes the write.
type Store interface {
	// Save upserts a record by ID. Backends that perform similarity search
	// generate a missing embedding before persisting. Returns false on a
	// non-fatal write failure; callers must check the result.
	Save(ctx context.Context, rec *memory.Record) bool

	// Get retrieves a record by ID. An absent record is (nil, nil), not an
	// error.
	Get(ctx context.Context, id string) (*memory.Record, error)

	// Search returns records matching the query, ranked per the backend's
	// relevance semantics, or ordered by recency when Query is empty. Never
	// returns more than the limit.
	Search(ctx context.Context, q SearchQuery) ([]*memory.Record, error)

	// Timeline returns records ordered ascending by creation time within
	// the inclusive bounds.
	Timeline(ctx context.Context, q TimelineQuery) ([]*memory.Record, error)

	// Delete removes a record. Returns true iff a record existed and was
	// removed.
	Delete(ctx context.Context, id string) bool

	// ListAll returns up to limit records with no filtering. On the qdrant
	// backend this is approximated by a neutral-probe similarity query and
	// is best effort, not an exhaustive scan.
	ListAll(ctx context.Context, limit int) ([]*memory.Record, error)

	// Close releases backend resources.
	Close() error
}
