package article

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Store implementations when no document matches.
var ErrNotFound = errors.New("article not found")

// Store persists staged article documents.
type Store interface {
	InsertArticle(ctx context.Context, doc Document) error
	GetArticle(ctx context.Context, id string) (Document, error)
	ListArticles(ctx context.Context, filter ListFilter) ([]Document, error)
	Ping(ctx context.Context) error
	Close() error
}

// BlobStore archives raw article text and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes ingest notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for deduplication/integrity.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces document IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
