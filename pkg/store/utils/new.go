// Package storeutils constructs a concrete store.Store from configuration.
package storeutils

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/keepsakeco/keepsake/pkg/embeddings"
	"github.com/keepsakeco/keepsake/pkg/store"
	"github.com/keepsakeco/keepsake/pkg/store/postgres"
	"github.com/keepsakeco/keepsake/pkg/store/qdrant"
	"github.com/keepsakeco/keepsake/pkg/store/sqlite"
)

// Backend names accepted by Config.Backend.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendQdrant   = "qdrant"
)

// Config selects and configures a backend. Backend left empty enables
// inference: postgres settings present win, then qdrant settings, then the
// sqlite fallback, which is always available.
type Config struct {
	// Backend is the explicit backend name, or empty for inference.
	Backend string

	// SQLitePath is the sqlite database file.
	SQLitePath string

	// PostgresDSN is the postgres connection string.
	PostgresDSN string

	// Qdrant connection settings.
	QdrantHost       string
	QdrantPort       int
	QdrantAPIKey     string
	QdrantUseTLS     bool
	QdrantCollection string

	// EmbeddingDimensions configures the vector collection size. Zero
	// defers to the embedder.
	EmbeddingDimensions int
}

// NewStore builds the backend the config names, or infers one when no name
// is given. An inferred fallback is logged, never silent. Unknown names and
// missing per-backend configuration fail fast here rather than on the first
// operation.
func NewStore(ctx context.Context, cfg Config, embedder embeddings.Embedder, logger *zap.Logger) (store.Store, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = inferBackend(cfg, logger)
	}

	switch backend {
	case BackendSQLite:
		return sqlite.New(sqlite.Config{Path: cfg.SQLitePath}, embedder, logger)
	case BackendPostgres:
		return postgres.New(ctx, postgres.Config{DSN: cfg.PostgresDSN}, embedder, logger)
	case BackendQdrant:
		return qdrant.New(ctx, qdrant.Config{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			APIKey:     cfg.QdrantAPIKey,
			UseTLS:     cfg.QdrantUseTLS,
			Collection: cfg.QdrantCollection,
			Dimensions: cfg.EmbeddingDimensions,
		}, embedder, logger)
	default:
		return nil, fmt.Errorf("unsupported backend %q: supported backends are %s, %s, %s",
			backend, BackendSQLite, BackendPostgres, BackendQdrant)
	}
}

func inferBackend(cfg Config, logger *zap.Logger) string {
	switch {
	case cfg.PostgresDSN != "":
		logger.Info("no backend configured, postgres settings present, selecting postgres")
		return BackendPostgres
	case cfg.QdrantHost != "":
		logger.Info("no backend configured, qdrant settings present, selecting qdrant")
		return BackendQdrant
	default:
		logger.Info("no backend configured, falling back to sqlite")
		return BackendSQLite
	}
}
