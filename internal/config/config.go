// Package config loads and validates ingest service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Store     StoreConfig     `mapstructure:"store"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// IngestConfig governs request handling limits.
type IngestConfig struct {
	MaxBodyBytes          int64 `mapstructure:"max_body_bytes"`
	RequestTimeoutSeconds int   `mapstructure:"request_timeout_seconds"`
	ListLimitDefault      int   `mapstructure:"list_limit_default"`
	ListLimitMax          int   `mapstructure:"list_limit_max"`
	// RateLimitRPS caps per-client request rate; 0 disables limiting.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// StoreConfig selects and configures the staging store backend.
type StoreConfig struct {
	Provider string         `mapstructure:"provider"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
}

// PostgresConfig controls the Postgres connection pool.
type PostgresConfig struct {
	DSN                    string `mapstructure:"dsn"`
	Table                  string `mapstructure:"table"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MinConns               int32  `mapstructure:"min_conns"`
	MaxConnLifetimeMinutes int    `mapstructure:"max_conn_lifetime_minutes"`
}

// MongoConfig controls the MongoDB client.
type MongoConfig struct {
	URI            string `mapstructure:"uri"`
	Database       string `mapstructure:"database"`
	Collection     string `mapstructure:"collection"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ArchiveConfig selects and configures raw-text blob archiving.
type ArchiveConfig struct {
	Provider    string `mapstructure:"provider"`
	GCSBucket   string `mapstructure:"gcs_bucket"`
	LocalDir    string `mapstructure:"local_dir"`
	Prefix      string `mapstructure:"prefix"`
	ContentType string `mapstructure:"content_type"`
	MinBytes    int    `mapstructure:"min_bytes"`
}

// PublisherConfig holds metadata for ingest notifications.
type PublisherConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The hosting platform injects the listen port as a bare PORT variable.
	if err := v.BindEnv("server.port", "INGEST_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("ingest.max_body_bytes", 1<<20)
	v.SetDefault("ingest.request_timeout_seconds", 30)
	v.SetDefault("ingest.list_limit_default", 50)
	v.SetDefault("ingest.list_limit_max", 200)
	v.SetDefault("ingest.rate_limit_rps", 0)
	v.SetDefault("ingest.rate_limit_burst", 20)
	v.SetDefault("store.provider", "memory")
	v.SetDefault("store.postgres.table", "staging_articles")
	v.SetDefault("store.postgres.max_conns", 4)
	v.SetDefault("store.postgres.min_conns", 0)
	v.SetDefault("store.postgres.max_conn_lifetime_minutes", 30)
	v.SetDefault("store.mongo.collection", "staging_articles")
	v.SetDefault("store.mongo.timeout_seconds", 10)
	v.SetDefault("archive.provider", "noop")
	v.SetDefault("archive.prefix", "articles")
	v.SetDefault("archive.content_type", "text/plain; charset=utf-8")
	v.SetDefault("archive.min_bytes", 0)
	v.SetDefault("publisher.provider", "noop")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Ingest.MaxBodyBytes <= 0 {
		return fmt.Errorf("ingest.max_body_bytes must be > 0")
	}
	if c.Ingest.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("ingest.request_timeout_seconds must be > 0")
	}
	if c.Ingest.ListLimitDefault <= 0 || c.Ingest.ListLimitMax < c.Ingest.ListLimitDefault {
		return fmt.Errorf("ingest.list_limit_default/list_limit_max are inconsistent")
	}

	switch c.Store.Provider {
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("store.postgres.dsn must be set when store.provider is postgres")
		}
	case "mongo":
		if c.Store.Mongo.URI == "" || c.Store.Mongo.Database == "" {
			return fmt.Errorf("store.mongo.uri and store.mongo.database must be set when store.provider is mongo")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store.provider: %s", c.Store.Provider)
	}

	switch c.Archive.Provider {
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set when archive.provider is gcs")
		}
	case "local":
		if c.Archive.LocalDir == "" {
			return fmt.Errorf("archive.local_dir must be set when archive.provider is local")
		}
	case "memory", "noop":
	default:
		return fmt.Errorf("unknown archive.provider: %s", c.Archive.Provider)
	}

	switch c.Publisher.Provider {
	case "pubsub":
		if c.Publisher.ProjectID == "" || c.Publisher.TopicID == "" {
			return fmt.Errorf("publisher.project_id and publisher.topic_id must be set when publisher.provider is pubsub")
		}
	case "memory", "noop":
	default:
		return fmt.Errorf("unknown publisher.provider: %s", c.Publisher.Provider)
	}

	return nil
}

// RequestTimeout converts the configured timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Ingest.RequestTimeoutSeconds) * time.Second
}

// MongoConnectTimeout converts the configured Mongo timeout into a duration.
func (c Config) MongoConnectTimeout() time.Duration {
	return time.Duration(c.Store.Mongo.TimeoutSeconds) * time.Second
}

// PostgresConnLifetime converts the configured lifetime into a duration.
func (c Config) PostgresConnLifetime() time.Duration {
	return time.Duration(c.Store.Postgres.MaxConnLifetimeMinutes) * time.Minute
}
