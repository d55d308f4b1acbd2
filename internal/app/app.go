// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/tetuya0525/article-ingest-service/internal/archive"
	archiveGCS "github.com/tetuya0525/article-ingest-service/internal/archive/gcs"
	archiveLocal "github.com/tetuya0525/article-ingest-service/internal/archive/local"
	archiveMemory "github.com/tetuya0525/article-ingest-service/internal/archive/memory"
	"github.com/tetuya0525/article-ingest-service/internal/article"
	"github.com/tetuya0525/article-ingest-service/internal/config"
	"github.com/tetuya0525/article-ingest-service/internal/publisher"
	publisherMemory "github.com/tetuya0525/article-ingest-service/internal/publisher/memory"
	publisherPubsub "github.com/tetuya0525/article-ingest-service/internal/publisher/pubsub"
	storeMemory "github.com/tetuya0525/article-ingest-service/internal/store/memory"
	storeMongo "github.com/tetuya0525/article-ingest-service/internal/store/mongo"
	storePostgres "github.com/tetuya0525/article-ingest-service/internal/store/postgres"
)

// App holds the shared, long-lived services for the ingest service. It is
// initialized once at startup and passed to the components that need it.
type App struct {
	logger    *zap.Logger
	store     article.Store
	archiver  article.BlobStore
	publisher article.Publisher

	closers []io.Closer
}

// Store returns the configured staging store.
func (a *App) Store() article.Store { return a.store }

// Archiver returns the configured raw-text blob store.
func (a *App) Archiver() article.BlobStore { return a.archiver }

// Publisher returns the configured notification publisher.
func (a *App) Publisher() article.Publisher { return a.publisher }

// New builds the provider stack selected by the configuration. It fails fast
// if any backend cannot be reached.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	store, err := a.buildStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}
	a.store = store

	archiver, err := a.buildArchiver(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("initialize archive: %w", err)
	}
	a.archiver = archiver

	pub, err := a.buildPublisher(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("initialize publisher: %w", err)
	}
	a.publisher = pub

	return a, nil
}

func (a *App) buildStore(ctx context.Context, cfg config.Config) (article.Store, error) {
	switch cfg.Store.Provider {
	case "postgres":
		a.logger.Info("using postgres staging store",
			zap.String("table", cfg.Store.Postgres.Table))
		store, err := storePostgres.New(ctx, storePostgres.Config{
			DSN:             cfg.Store.Postgres.DSN,
			Table:           cfg.Store.Postgres.Table,
			MaxConns:        cfg.Store.Postgres.MaxConns,
			MinConns:        cfg.Store.Postgres.MinConns,
			MaxConnLifetime: cfg.PostgresConnLifetime(),
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil
	case "mongo":
		a.logger.Info("using mongo staging store",
			zap.String("database", cfg.Store.Mongo.Database),
			zap.String("collection", cfg.Store.Mongo.Collection))
		store, err := storeMongo.New(ctx, storeMongo.Config{
			URI:            cfg.Store.Mongo.URI,
			Database:       cfg.Store.Mongo.Database,
			Collection:     cfg.Store.Mongo.Collection,
			ConnectTimeout: cfg.MongoConnectTimeout(),
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil
	case "memory":
		a.logger.Info("using in-memory staging store, documents are not durable")
		return storeMemory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store provider: %s", cfg.Store.Provider)
	}
}

func (a *App) buildArchiver(ctx context.Context, cfg config.Config) (article.BlobStore, error) {
	switch cfg.Archive.Provider {
	case "gcs":
		a.logger.Info("using GCS raw-text archive",
			zap.String("bucket", cfg.Archive.GCSBucket))
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		a.closers = append(a.closers, client)
		return archiveGCS.New(client, archiveGCS.Config{Bucket: cfg.Archive.GCSBucket})
	case "local":
		a.logger.Info("using local filesystem raw-text archive",
			zap.String("dir", cfg.Archive.LocalDir))
		return archiveLocal.New(archiveLocal.Config{BaseDir: cfg.Archive.LocalDir})
	case "memory":
		return archiveMemory.NewBlobStore(), nil
	case "noop":
		a.logger.Info("raw-text archiving disabled")
		return archive.NoOp{}, nil
	default:
		return nil, fmt.Errorf("unknown archive provider: %s", cfg.Archive.Provider)
	}
}

func (a *App) buildPublisher(ctx context.Context, cfg config.Config) (article.Publisher, error) {
	switch cfg.Publisher.Provider {
	case "pubsub":
		a.logger.Info("using pubsub ingest notifications",
			zap.String("project", cfg.Publisher.ProjectID),
			zap.String("topic", cfg.Publisher.TopicID))
		pub, err := publisherPubsub.New(ctx, cfg.Publisher.ProjectID, cfg.Publisher.TopicID)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pub)
		return pub, nil
	case "memory":
		return publisherMemory.New(), nil
	case "noop":
		a.logger.Info("ingest notifications disabled")
		return publisher.NoOp{}, nil
	default:
		return nil, fmt.Errorf("unknown publisher provider: %s", cfg.Publisher.Provider)
	}
}

// Close shuts down all services in reverse initialization order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("error closing service", zap.Error(err))
		}
	}
	a.closers = nil
}
