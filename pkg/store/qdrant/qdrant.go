// Package qdrant provides the vector-index backend. Each record maps to one
// point: the embedding is the similarity vector and every other field is
// flattened into the point payload (scalars directly, tags and metadata as
// JSON-encoded strings).
//
// Search always issues a similarity query. When the caller supplies no query
// text the backend still needs a query vector, so it embeds a fixed neutral
// probe; query-less Search, Timeline, and ListAll on this backend are best
// effort, not exhaustive scans.
//
// Point IDs must be UUIDs, a qdrant-side constraint the other backends do
// not share. Records created through memory.New satisfy it; Save rejects a
// caller-supplied ID that is not a UUID before reaching the server.
package qdrant

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/keepsakeco/keepsake/pkg/embeddings"
	"github.com/keepsakeco/keepsake/pkg/memory"
	"github.com/keepsakeco/keepsake/pkg/store"
	"github.com/keepsakeco/keepsake/pkg/utils"
)

const (
	// DefaultCollection is the collection used when none is configured.
	DefaultCollection = "keepsake-memories"

	// DefaultPort is the qdrant gRPC port.
	DefaultPort = 6334

	// timelineFetchLimit bounds how many candidates a Timeline call pulls
	// from the index before filtering and sorting client-side; the index
	// itself has no chronological ordering.
	timelineFetchLimit = 1000
)

// Config holds configuration for the qdrant backend.
type Config struct {
	// Host of the qdrant service. Required.
	Host string

	// Port of the gRPC endpoint. Defaults to DefaultPort.
	Port int

	// APIKey authenticates against managed qdrant. Empty for unsecured
	// local deployments.
	APIKey string

	// UseTLS enables transport security, required by most managed
	// deployments.
	UseTLS bool

	// Collection name. Defaults to DefaultCollection.
	Collection string

	// Dimensions of the collection vectors. Defaults to the embedder's
	// output length.
	Dimensions int
}

// Store implements store.Store on a qdrant collection.
type Store struct {
	client     *qdrant.Client
	embedder   embeddings.Embedder
	collection string
	dims       int
	logger     *zap.Logger
}

// New connects to qdrant and provisions the collection if it does not exist
// (cosine distance, configured dimensionality). Provisioning is idempotent
// across repeated construction. The embedder is required: this backend
// cannot persist a record without a vector.
func New(ctx context.Context, cfg Config, embedder embeddings.Embedder, logger *zap.Logger) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: qdrant host is required", store.ErrBackendUnavailable)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: qdrant backend requires an embedder", store.ErrBackendUnavailable)
	}

	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	collection := cfg.Collection
	if collection == "" {
		collection = DefaultCollection
	}
	dims := cfg.Dimensions
	if dims == 0 {
		dims = embedder.Dimensions()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant: %w", store.ErrBackendUnavailable, err)
	}

	s := &Store{
		client:     client,
		embedder:   embedder,
		collection: collection,
		dims:       dims,
		logger:     logger,
	}

	if err := s.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", store.ErrBackendUnavailable, err)
	}

	logger.Info("qdrant store initialized",
		zap.String("host", cfg.Host),
		zap.String("collection", collection),
		zap.Int("dimensions", dims),
	)

	return s, nil
}

func (s *Store) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("checking collection %q: %w", s.collection, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %q: %w", s.collection, err)
	}

	s.logger.Info("created qdrant collection", zap.String("collection", s.collection))

	return nil
}

// Save upserts the record as a single point. A missing embedding is
// generated; an embedding whose length disagrees with the collection
// dimensionality is re-generated from content, never truncated or padded.
// The record ID must be a UUID (see the package doc).
func (s *Store) Save(ctx context.Context, rec *memory.Record) bool {
	if err := rec.Validate(); err != nil {
		s.logger.Error("refusing to save invalid record", zap.Error(err))
		return false
	}

	// Rejecting a non-UUID ID here beats a cryptic server-side upsert error.
	if err := uuid.Validate(rec.ID); err != nil {
		s.logger.Error("refusing to save record with non-uuid ID",
			zap.String("id", rec.ID), zap.Error(err))
		return false
	}

	if err := s.ensureEmbedding(ctx, rec); err != nil {
		s.logger.Error("generating embedding", zap.String("id", rec.ID), zap.Error(err))
		return false
	}

	payload, err := recordPayload(rec)
	if err != nil {
		s.logger.Error("encoding payload", zap.String("id", rec.ID), zap.Error(err))
		return false
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(rec.ID),
				Vectors: qdrant.NewVectors(rec.Embedding...),
				Payload: qdrant.NewValueMap(payload),
			},
		},
	})
	if err != nil {
		s.logger.Error("saving record", zap.String("id", rec.ID), zap.Error(err))
		return false
	}

	s.logger.Debug("saved record",
		zap.String("id", rec.ID),
		zap.String("kind", string(rec.Kind)),
		zap.String("content", utils.Truncate(rec.Content, 64)),
	)

	return true
}

func (s *Store) ensureEmbedding(ctx context.Context, rec *memory.Record) error {
	if len(rec.Embedding) == s.dims {
		return nil
	}

	emb, err := s.embedder.Embed(ctx, rec.Content)
	if err != nil {
		return err
	}
	if len(emb) != s.dims {
		return fmt.Errorf("%w: embedder produced %d dimensions, collection expects %d",
			embeddings.ErrDimensionMismatch, len(emb), s.dims)
	}

	rec.Embedding = emb

	return nil
}

// Get retrieves a record by ID. Absent records are (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*memory.Record, error) {
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{qdrant.NewID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching point %s: %w", id, err)
	}
	if len(points) == 0 {
		return nil, nil
	}

	return s.pointToRecord(points[0].GetId(), points[0].GetPayload(), points[0].GetVectors())
}

// Search issues a similarity query. Query text is embedded and used as the
// query vector; absent a query the neutral probe is used and results are
// effectively unranked.
func (s *Store) Search(ctx context.Context, q store.SearchQuery) ([]*memory.Record, error) {
	vector, err := s.queryVector(ctx, q.Query)
	if err != nil {
		return nil, err
	}

	var conds []*qdrant.Condition
	if q.Kind != "" {
		conds = append(conds, qdrant.NewMatch("kind", string(q.Kind)))
	}
	if q.OwnerID != "" {
		conds = append(conds, qdrant.NewMatch("owner_id", q.OwnerID))
	}
	if q.SessionID != "" {
		conds = append(conds, qdrant.NewMatch("session_id", q.SessionID))
	}

	var filter *qdrant.Filter
	if len(conds) > 0 {
		filter = &qdrant.Filter{Must: conds}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = store.DefaultSearchLimit
	}

	return s.query(ctx, vector, filter, limit)
}

// Timeline approximates a chronological scan: candidates are pulled with a
// neutral-probe query, filtered by the inclusive bounds, and sorted
// client-side. Best effort, bounded by an internal fetch limit.
func (s *Store) Timeline(ctx context.Context, q store.TimelineQuery) ([]*memory.Record, error) {
	vector, err := s.queryVector(ctx, "")
	if err != nil {
		return nil, err
	}

	var filter *qdrant.Filter
	if q.OwnerID != "" {
		filter = &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch("owner_id", q.OwnerID)}}
	}

	candidates, err := s.query(ctx, vector, filter, timelineFetchLimit)
	if err != nil {
		return nil, err
	}

	var records []*memory.Record
	for _, rec := range candidates {
		if q.Start != nil && rec.CreatedAt.Before(*q.Start) {
			continue
		}
		if q.End != nil && rec.CreatedAt.After(*q.End) {
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	limit := q.Limit
	if limit <= 0 {
		limit = store.DefaultTimelineLimit
	}
	if len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}

// Delete removes a record, reporting whether one existed.
func (s *Store) Delete(ctx context.Context, id string) bool {
	existing, err := s.Get(ctx, id)
	if err != nil {
		s.logger.Error("checking record before delete", zap.String("id", id), zap.Error(err))
		return false
	}
	if existing == nil {
		return false
	}

	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(qdrant.NewID(id)),
	})
	if err != nil {
		s.logger.Error("deleting record", zap.String("id", id), zap.Error(err))
		return false
	}

	s.logger.Debug("deleted record", zap.String("id", id))

	return true
}

// ListAll approximates "get everything" via a neutral-probe query. Best
// effort, not a precise scan.
func (s *Store) ListAll(ctx context.Context, limit int) ([]*memory.Record, error) {
	if limit <= 0 {
		limit = store.DefaultListAllLimit
	}

	vector, err := s.queryVector(ctx, "")
	if err != nil {
		return nil, err
	}

	return s.query(ctx, vector, nil, limit)
}

// Close closes the client connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// queryVector embeds the query text, or the fixed neutral probe (the empty
// string) when no text is given.
func (s *Store) queryVector(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vec) != s.dims {
		return nil, fmt.Errorf("%w: query embedding has %d dimensions, collection expects %d",
			embeddings.ErrDimensionMismatch, len(vec), s.dims)
	}

	return vec, nil
}

func (s *Store) query(ctx context.Context, vector []float32, filter *qdrant.Filter, limit int) ([]*memory.Record, error) {
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	records := make([]*memory.Record, 0, len(points))
	for _, p := range points {
		rec, err := s.pointToRecord(p.GetId(), p.GetPayload(), p.GetVectors())
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

// recordPayload flattens the record into the index-side metadata map.
// Scalars are stored directly; tags and metadata are JSON-encoded strings.
// Optional strings use "" for absent so payload filters stay well-typed.
func recordPayload(rec *memory.Record) (map[string]any, error) {
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return nil, fmt.Errorf("encoding tags: %w", err)
	}
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}

	lastAccessed := ""
	if rec.LastAccessed != nil {
		lastAccessed = rec.LastAccessed.UTC().Format(time.RFC3339Nano)
	}

	return map[string]any{
		"content":       rec.Content,
		"kind":          string(rec.Kind),
		"owner_id":      rec.OwnerID,
		"session_id":    rec.SessionID,
		"created_at":    rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		"importance":    rec.Importance,
		"tags":          string(tags),
		"metadata":      string(metadata),
		"last_accessed": lastAccessed,
	}, nil
}

// pointToRecord reverses recordPayload. A parse failure on an optional
// JSON-encoded field degrades to the field's default.
func (s *Store) pointToRecord(id *qdrant.PointId, payload map[string]*qdrant.Value, vectors *qdrant.VectorsOutput) (*memory.Record, error) {
	recID := id.GetUuid()

	kind, err := memory.ParseKind(payloadString(payload, "kind"))
	if err != nil {
		return nil, fmt.Errorf("%w: record %s: %w", store.ErrMalformedRecord, recID, err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, payloadString(payload, "created_at"))
	if err != nil {
		return nil, fmt.Errorf("%w: record %s: parsing created_at: %w", store.ErrMalformedRecord, recID, err)
	}

	rec := &memory.Record{
		ID:         recID,
		Content:    payloadString(payload, "content"),
		Kind:       kind,
		OwnerID:    payloadString(payload, "owner_id"),
		SessionID:  payloadString(payload, "session_id"),
		CreatedAt:  createdAt,
		Importance: memory.DefaultImportance,
	}

	if v, ok := payload["importance"]; ok {
		rec.Importance = v.GetDoubleValue()
	}

	if raw := payloadString(payload, "tags"); raw != "" && raw != "null" {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			s.logger.Warn("dropping unparseable tags", zap.String("id", recID), zap.Error(err))
		} else {
			rec.Tags = tags
		}
	}

	if raw := payloadString(payload, "metadata"); raw != "" && raw != "null" {
		var md map[string]any
		if err := json.Unmarshal([]byte(raw), &md); err != nil {
			s.logger.Warn("dropping unparseable metadata", zap.String("id", recID), zap.Error(err))
		} else {
			rec.Metadata = md
		}
	}

	if raw := payloadString(payload, "last_accessed"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			s.logger.Warn("dropping unparseable last_accessed", zap.String("id", recID), zap.Error(err))
		} else {
			rec.LastAccessed = &t
		}
	}

	if vectors != nil {
		if data := vectors.GetVector().GetData(); len(data) > 0 {
			rec.Embedding = data
		}
	}

	return rec, nil
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}
