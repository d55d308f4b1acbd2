// Package mongo provides the MongoDB-backed staging store.
//
// The staging collection is a document store, so Mongo is the closest match
// for deployments that do not run Postgres.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/tetuya0525/article-ingest-service/internal/article"
)

// Config captures the parameters required to connect to MongoDB.
type Config struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// Store writes staged articles into a Mongo collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// document mirrors article.Document with bson field names. The JSON names
// are kept so the stored documents read the same in both stores.
type document struct {
	ID          string              `bson:"_id"`
	Title       string              `bson:"title"`
	SourceType  string              `bson:"sourceType"`
	Description string              `bson:"description"`
	Keywords    []string            `bson:"keywords"`
	Content     content             `bson:"content"`
	AIGenerated article.AIGenerated `bson:"aiGenerated"`
	Status      string              `bson:"status"`
	ContentHash string              `bson:"contentHash,omitempty"`
	ContentURI  string              `bson:"contentURI,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt"`
}

type content struct {
	RawText        string         `bson:"rawText"`
	StructuredData map[string]any `bson:"structuredData"`
}

// New connects to Mongo and pings the primary to verify the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("store.mongo.uri is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("store.mongo.database is required")
	}
	collName := cfg.Collection
	if collName == "" {
		collName = "staging_articles"
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		if dcErr := client.Disconnect(context.Background()); dcErr != nil {
			return nil, fmt.Errorf("ping mongo: %w (disconnect: %v)", err, dcErr)
		}
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{
		client: client,
		coll:   client.Database(cfg.Database).Collection(collName),
	}, nil
}

// InsertArticle inserts a staged document.
func (s *Store) InsertArticle(ctx context.Context, doc article.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document id is required")
	}
	if _, err := s.coll.InsertOne(ctx, toRecord(doc)); err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// GetArticle fetches one staged document by ID.
func (s *Store) GetArticle(ctx context.Context, id string) (article.Document, error) {
	var rec document
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return article.Document{}, article.ErrNotFound
		}
		return article.Document{}, fmt.Errorf("get article: %w", err)
	}
	return fromRecord(rec), nil
}

// ListArticles returns staged documents, newest first, optionally filtered by status.
func (s *Store) ListArticles(ctx context.Context, filter article.ListFilter) ([]article.Document, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if filter.Limit > 0 {
		opts = opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts = opts.SetSkip(int64(filter.Offset))
	}
	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var docs []article.Document
	for cursor.Next(ctx) {
		var rec document
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode article document: %w", err)
		}
		docs = append(docs, fromRecord(rec))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate article documents: %w", err)
	}
	return docs, nil
}

// Ping verifies the connection to the primary.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}

func toRecord(doc article.Document) document {
	keywords := doc.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	structured := doc.Content.StructuredData
	if structured == nil {
		structured = map[string]any{}
	}
	return document{
		ID:          doc.ID,
		Title:       doc.Title,
		SourceType:  doc.SourceType,
		Description: doc.Description,
		Keywords:    keywords,
		Content: content{
			RawText:        doc.Content.RawText,
			StructuredData: structured,
		},
		AIGenerated: doc.AIGenerated,
		Status:      string(doc.Status),
		ContentHash: doc.ContentHash,
		ContentURI:  doc.ContentURI,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

func fromRecord(rec document) article.Document {
	return article.Document{
		ID:          rec.ID,
		Title:       rec.Title,
		SourceType:  rec.SourceType,
		Description: rec.Description,
		Keywords:    rec.Keywords,
		Content: article.Content{
			RawText:        rec.Content.RawText,
			StructuredData: rec.Content.StructuredData,
		},
		AIGenerated: rec.AIGenerated,
		Status:      article.Status(rec.Status),
		ContentHash: rec.ContentHash,
		ContentURI:  rec.ContentURI,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}
