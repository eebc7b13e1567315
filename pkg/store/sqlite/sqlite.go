// Package sqlite provides the embedded relational backend, the universal
// fallback that needs nothing beyond a local file.
//
// Search with a query performs substring containment matching on content with
// recency ordering. This is deliberately weaker than the semantic ranking of
// the qdrant and postgres backends; callers that need true relevance ranking
// should configure one of those.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/keepsakeco/keepsake/pkg/embeddings"
	"github.com/keepsakeco/keepsake/pkg/memory"
	"github.com/keepsakeco/keepsake/pkg/store"
	"github.com/keepsakeco/keepsake/pkg/utils"
)

// DefaultPath is the database file used when no path is configured. This is
// the only backend with a baked-in default; everything else is externally
// supplied.
const DefaultPath = "keepsake.db"

// timeLayout is a fixed-width RFC 3339 variant so TEXT comparison orders
// timestamps correctly.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Config holds configuration for the sqlite backend.
type Config struct {
	// Path is the database file, or ":memory:" for an in-memory database.
	// Defaults to DefaultPath when empty.
	Path string
}

// Store implements store.Store on a SQLite file. Concurrent use relies on
// the driver's file-level locking plus a busy timeout.
type Store struct {
	db       *sql.DB
	embedder embeddings.Embedder
	logger   *zap.Logger
}

// New opens the database, ensures the schema exists, and runs the additive
// migrations. The embedder may be nil; when present, records saved without
// an embedding get one generated (stored for callers, not used for ranking
// on this backend).
func New(cfg Config, embedder embeddings.Embedder, logger *zap.Logger) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", store.ErrBackendUnavailable, err)
	}

	// An in-memory database exists per connection; the pool must not open
	// a second one.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: setting busy timeout: %w", store.ErrBackendUnavailable, err)
	}

	s := &Store{
		db:       db,
		embedder: embedder,
		logger:   logger,
	}

	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", store.ErrBackendUnavailable, err)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", store.ErrBackendUnavailable, err)
	}

	logger.Info("sqlite store initialized", zap.String("path", path))

	return s, nil
}

func (s *Store) ensureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			kind TEXT NOT NULL,
			owner_id TEXT,
			session_id TEXT,
			created_at TEXT NOT NULL,
			metadata TEXT,
			embedding TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_kind ON memories(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_owner_id ON memories(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_session_id ON memories(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	return nil
}

// migrate applies the forward-only additive migrations: columns introduced
// after the initial schema are added when absent and existing rows are
// backfilled with defaults. Safe to run against an already-migrated store.
func (s *Store) migrate() error {
	rows, err := s.db.Query(`PRAGMA table_info(memories)`)
	if err != nil {
		return fmt.Errorf("reading table info: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("scanning table info: %w", err)
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating table info: %w", err)
	}

	type addition struct {
		column   string
		ddl      string
		backfill string
	}
	additions := []addition{
		{
			column:   "importance",
			ddl:      `ALTER TABLE memories ADD COLUMN importance REAL DEFAULT 5.0`,
			backfill: `UPDATE memories SET importance = 5.0 WHERE importance IS NULL`,
		},
		{
			column:   "tags",
			ddl:      `ALTER TABLE memories ADD COLUMN tags TEXT`,
			backfill: `UPDATE memories SET tags = '[]' WHERE tags IS NULL`,
		},
		{
			column: "last_accessed",
			ddl:    `ALTER TABLE memories ADD COLUMN last_accessed TEXT`,
		},
	}

	for _, add := range additions {
		if existing[add.column] {
			continue
		}

		if _, err := s.db.Exec(add.ddl); err != nil {
			return fmt.Errorf("adding column %s: %w", add.column, err)
		}
		if add.backfill != "" {
			if _, err := s.db.Exec(add.backfill); err != nil {
				return fmt.Errorf("backfilling column %s: %w", add.column, err)
			}
		}

		s.logger.Info("migrated memories table", zap.String("column", add.column))
	}

	return nil
}

// Save upserts the record by ID.
func (s *Store) Save(ctx context.Context, rec *memory.Record) bool {
	if err := rec.Validate(); err != nil {
		s.logger.Error("refusing to save invalid record", zap.Error(err))
		return false
	}

	if rec.Embedding == nil && s.embedder != nil {
		emb, err := s.embedder.Embed(ctx, rec.Content)
		if err != nil {
			s.logger.Error("generating embedding", zap.String("id", rec.ID), zap.Error(err))
			return false
		}
		rec.Embedding = emb
	}

	var metadata, tags, embedding any
	if rec.Metadata != nil {
		encoded, err := json.Marshal(rec.Metadata)
		if err != nil {
			s.logger.Error("encoding metadata", zap.String("id", rec.ID), zap.Error(err))
			return false
		}
		metadata = string(encoded)
	}
	if rec.Tags != nil {
		encoded, err := json.Marshal(rec.Tags)
		if err != nil {
			s.logger.Error("encoding tags", zap.String("id", rec.ID), zap.Error(err))
			return false
		}
		tags = string(encoded)
	}
	if rec.Embedding != nil {
		encoded, err := json.Marshal(rec.Embedding)
		if err != nil {
			s.logger.Error("encoding embedding", zap.String("id", rec.ID), zap.Error(err))
			return false
		}
		embedding = string(encoded)
	}

	var lastAccessed any
	if rec.LastAccessed != nil {
		lastAccessed = rec.LastAccessed.UTC().Format(timeLayout)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO memories
		(id, content, kind, owner_id, session_id, created_at, metadata, embedding, importance, tags, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Content,
		string(rec.Kind),
		nullIfEmpty(rec.OwnerID),
		nullIfEmpty(rec.SessionID),
		rec.CreatedAt.UTC().Format(timeLayout),
		metadata,
		embedding,
		rec.Importance,
		tags,
		lastAccessed,
	)
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

// Get retrieves a record by ID. Absent records are (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*memory.Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` FROM memories WHERE id = ?`, id)

	rec, err := s.scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// Search filters records, matching the query as a substring of content when
// present. Results are ordered by recency.
func (s *Store) Search(ctx context.Context, q store.SearchQuery) ([]*memory.Record, error) {
	sqlText := selectColumns + ` FROM memories WHERE 1=1`
	var args []any

	if q.Query != "" {
		sqlText += ` AND content LIKE ?`
		args = append(args, "%"+q.Query+"%")
	}
	if q.Kind != "" {
		sqlText += ` AND kind = ?`
		args = append(args, string(q.Kind))
	}
	if q.OwnerID != "" {
		sqlText += ` AND owner_id = ?`
		args = append(args, q.OwnerID)
	}
	if q.SessionID != "" {
		sqlText += ` AND session_id = ?`
		args = append(args, q.SessionID)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = store.DefaultSearchLimit
	}
	sqlText += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	return s.queryRecords(ctx, sqlText, args...)
}

// Timeline returns records ordered ascending by creation time within the
// inclusive bounds.
func (s *Store) Timeline(ctx context.Context, q store.TimelineQuery) ([]*memory.Record, error) {
	sqlText := selectColumns + ` FROM memories WHERE 1=1`
	var args []any

	if q.OwnerID != "" {
		sqlText += ` AND owner_id = ?`
		args = append(args, q.OwnerID)
	}
	if q.Start != nil {
		sqlText += ` AND created_at >= ?`
		args = append(args, q.Start.UTC().Format(timeLayout))
	}
	if q.End != nil {
		sqlText += ` AND created_at <= ?`
		args = append(args, q.End.UTC().Format(timeLayout))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = store.DefaultTimelineLimit
	}
	sqlText += ` ORDER BY created_at ASC LIMIT ?`
	args = append(args, limit)

	return s.queryRecords(ctx, sqlText, args...)
}

// Delete removes a record, reporting whether one existed.
func (s *Store) Delete(ctx context.Context, id string) bool {
	result, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		s.logger.Error("deleting record", zap.String("id", id), zap.Error(err))
		return false
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.Error("reading delete result", zap.String("id", id), zap.Error(err))
		return false
	}

	if affected > 0 {
		s.logger.Debug("deleted record", zap.String("id", id))
	}

	return affected > 0
}

// ListAll returns up to limit records ordered by recency.
func (s *Store) ListAll(ctx context.Context, limit int) ([]*memory.Record, error) {
	if limit <= 0 {
		limit = store.DefaultListAllLimit
	}

	return s.queryRecords(ctx,
		selectColumns+` FROM memories ORDER BY created_at DESC LIMIT ?`, limit)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectColumns = `SELECT id, content, kind, owner_id, session_id, created_at, metadata, embedding, importance, tags, last_accessed`

func (s *Store) queryRecords(ctx context.Context, sqlText string, args ...any) ([]*memory.Record, error) {
	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []*memory.Record
	for rows.Next() {
		rec, err := s.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	return records, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRecord decodes one row. A parse failure on an optional serialized
// field (metadata, tags, embedding) degrades to the field's default instead
// of failing the read; a malformed kind or created_at fails the whole row.
func (s *Store) scanRecord(sc scanner) (*memory.Record, error) {
	var (
		id, content, kind, createdAt            string
		ownerID, sessionID                      sql.NullString
		metadata, embedding, tags, lastAccessed sql.NullString
		importance                              sql.NullFloat64
	)

	err := sc.Scan(&id, &content, &kind, &ownerID, &sessionID, &createdAt,
		&metadata, &embedding, &importance, &tags, &lastAccessed)
	if err != nil {
		return nil, err
	}

	parsedKind, err := memory.ParseKind(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: record %s: %w", store.ErrMalformedRecord, id, err)
	}

	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("%w: record %s: parsing created_at: %w", store.ErrMalformedRecord, id, err)
	}

	rec := &memory.Record{
		ID:         id,
		Content:    content,
		Kind:       parsedKind,
		OwnerID:    ownerID.String,
		SessionID:  sessionID.String,
		CreatedAt:  created,
		Importance: memory.DefaultImportance,
	}

	if importance.Valid {
		rec.Importance = importance.Float64
	}

	if metadata.Valid && metadata.String != "" {
		var md map[string]any
		if err := json.Unmarshal([]byte(metadata.String), &md); err != nil {
			s.logger.Warn("dropping unparseable metadata", zap.String("id", id), zap.Error(err))
		} else {
			rec.Metadata = md
		}
	}

	if embedding.Valid && embedding.String != "" {
		var emb []float32
		if err := json.Unmarshal([]byte(embedding.String), &emb); err != nil {
			s.logger.Warn("dropping unparseable embedding", zap.String("id", id), zap.Error(err))
		} else {
			rec.Embedding = emb
		}
	}

	if tags.Valid && tags.String != "" {
		var parsed []string
		if err := json.Unmarshal([]byte(tags.String), &parsed); err != nil {
			s.logger.Warn("dropping unparseable tags", zap.String("id", id), zap.Error(err))
		} else {
			rec.Tags = parsed
		}
	}

	if lastAccessed.Valid && lastAccessed.String != "" {
		t, err := time.Parse(time.RFC3339Nano, lastAccessed.String)
		if err != nil {
			s.logger.Warn("dropping unparseable last_accessed", zap.String("id", id), zap.Error(err))
		} else {
			rec.LastAccessed = &t
		}
	}

	return rec, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
