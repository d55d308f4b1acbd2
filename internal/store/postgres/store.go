// Package postgres provides the Postgres-backed staging store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tetuya0525/article-ingest-service/internal/article"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for the staging table.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Store writes staged articles into Postgres.
//
// Expected schema:
//
//	CREATE TABLE staging_articles (
//		id UUID PRIMARY KEY,
//		title TEXT NOT NULL,
//		source_type TEXT NOT NULL,
//		description TEXT NOT NULL DEFAULT '',
//		keywords JSONB NOT NULL DEFAULT '[]',
//		raw_text TEXT NOT NULL,
//		structured_data JSONB NOT NULL DEFAULT '{}',
//		ai_generated JSONB NOT NULL,
//		status TEXT NOT NULL,
//		content_hash TEXT NOT NULL DEFAULT '',
//		content_uri TEXT NOT NULL DEFAULT '',
//		created_at TIMESTAMPTZ NOT NULL,
//		updated_at TIMESTAMPTZ NOT NULL
//	);
type Store struct {
	pool  dbPool
	table string
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.postgres.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "staging_articles"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{
		pool:  pool,
		table: table,
	}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool dbPool, table string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "staging_articles"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: pool, table: table}, nil
}

// InsertArticle inserts a staged document row.
func (s *Store) InsertArticle(ctx context.Context, doc article.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document id is required")
	}
	keywordsJSON, err := json.Marshal(emptyIfNil(doc.Keywords))
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}
	structuredJSON, err := json.Marshal(emptyMapIfNil(doc.Content.StructuredData))
	if err != nil {
		return fmt.Errorf("marshal structured data: %w", err)
	}
	aiJSON, err := json.Marshal(doc.AIGenerated)
	if err != nil {
		return fmt.Errorf("marshal ai generated: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	title,
	source_type,
	description,
	keywords,
	raw_text,
	structured_data,
	ai_generated,
	status,
	content_hash,
	content_uri,
	created_at,
	updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
)`, s.table)

	args := []any{
		doc.ID,
		doc.Title,
		doc.SourceType,
		doc.Description,
		keywordsJSON,
		doc.Content.RawText,
		structuredJSON,
		aiJSON,
		string(doc.Status),
		doc.ContentHash,
		doc.ContentURI,
		doc.CreatedAt,
		doc.UpdatedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// GetArticle fetches one staged document by ID.
func (s *Store) GetArticle(ctx context.Context, id string) (article.Document, error) {
	query := fmt.Sprintf(`
SELECT id, title, source_type, description, keywords, raw_text, structured_data,
	ai_generated, status, content_hash, content_uri, created_at, updated_at
FROM %s
WHERE id = $1`, s.table)

	doc, err := scanDocument(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return article.Document{}, article.ErrNotFound
		}
		return article.Document{}, fmt.Errorf("get article: %w", err)
	}
	return doc, nil
}

// ListArticles returns staged documents, newest first, optionally filtered by status.
func (s *Store) ListArticles(ctx context.Context, filter article.ListFilter) ([]article.Document, error) {
	query := fmt.Sprintf(`
SELECT id, title, source_type, description, keywords, raw_text, structured_data,
	ai_generated, status, content_hash, content_uri, created_at, updated_at
FROM %s
WHERE ($1::text IS NULL OR status = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, s.table)

	var status *string
	if filter.Status != "" {
		v := string(filter.Status)
		status = &v
	}
	rows, err := s.pool.Query(ctx, query, status, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var docs []article.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article row: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article rows: %w", err)
	}
	return docs, nil
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanDocument(row pgx.Row) (article.Document, error) {
	var (
		doc            article.Document
		keywordsJSON   []byte
		structuredJSON []byte
		aiJSON         []byte
		status         string
	)
	err := row.Scan(
		&doc.ID,
		&doc.Title,
		&doc.SourceType,
		&doc.Description,
		&keywordsJSON,
		&doc.Content.RawText,
		&structuredJSON,
		&aiJSON,
		&status,
		&doc.ContentHash,
		&doc.ContentURI,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return article.Document{}, err
	}
	doc.Status = article.Status(status)
	if err := json.Unmarshal(keywordsJSON, &doc.Keywords); err != nil {
		return article.Document{}, fmt.Errorf("unmarshal keywords: %w", err)
	}
	if err := json.Unmarshal(structuredJSON, &doc.Content.StructuredData); err != nil {
		return article.Document{}, fmt.Errorf("unmarshal structured data: %w", err)
	}
	if err := json.Unmarshal(aiJSON, &doc.AIGenerated); err != nil {
		return article.Document{}, fmt.Errorf("unmarshal ai generated: %w", err)
	}
	return doc, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyMapIfNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
