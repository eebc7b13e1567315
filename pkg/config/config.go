// Package config loads keepsake configuration. It is a convenience layer on
// top of the explicit structs the factories take: defaults, an optional
// keepsake.toml, and KEEPSAKE_-prefixed environment variables, in rising
// precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/keepsakeco/keepsake/pkg/embeddings/simhash"
	"github.com/keepsakeco/keepsake/pkg/store/qdrant"
	"github.com/keepsakeco/keepsake/pkg/store/sqlite"
	storeutils "github.com/keepsakeco/keepsake/pkg/store/utils"
)

// EnvPrefix is the environment variable prefix, e.g.
// KEEPSAKE_STORE_BACKEND, KEEPSAKE_STORE_POSTGRES_DSN.
const EnvPrefix = "KEEPSAKE"

// Config is the full runtime configuration.
type Config struct {
	// Debug enables debug-level logging.
	Debug bool

	// Store configures backend selection and connections.
	Store storeutils.Config

	// Events configures the change-event publisher: provider "nop" or
	// "kafka".
	Events EventsConfig
}

// EventsConfig configures change-event publishing.
type EventsConfig struct {
	Provider string
	Brokers  []string
	Topic    string
}

// Load reads configuration from defaults, an optional keepsake.toml in the
// given directory (or the working directory when empty), and the
// environment.
func Load(configDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("keepsake")
	v.SetConfigType("toml")
	if configDir == "" {
		configDir = "."
	}
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Debug: v.GetBool("debug"),
		Store: storeutils.Config{
			Backend:             v.GetString("store.backend"),
			SQLitePath:          v.GetString("store.sqlite_path"),
			PostgresDSN:         v.GetString("store.postgres_dsn"),
			QdrantHost:          v.GetString("store.qdrant_host"),
			QdrantPort:          v.GetInt("store.qdrant_port"),
			QdrantAPIKey:        v.GetString("store.qdrant_api_key"),
			QdrantUseTLS:        v.GetBool("store.qdrant_use_tls"),
			QdrantCollection:    v.GetString("store.qdrant_collection"),
			EmbeddingDimensions: v.GetInt("embedding.dimensions"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetStringSlice("events.brokers"),
			Topic:    v.GetString("events.topic"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("store.backend", "")
	v.SetDefault("store.sqlite_path", sqlite.DefaultPath)
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("store.qdrant_host", "")
	v.SetDefault("store.qdrant_port", qdrant.DefaultPort)
	v.SetDefault("store.qdrant_api_key", "")
	v.SetDefault("store.qdrant_use_tls", false)
	v.SetDefault("store.qdrant_collection", qdrant.DefaultCollection)

	v.SetDefault("embedding.dimensions", simhash.DefaultDimensions)

	v.SetDefault("events.provider", "nop")
	v.SetDefault("events.brokers", []string{})
	v.SetDefault("events.topic", "keepsake.memory.events")
}
