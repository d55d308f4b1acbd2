// Package memory provides an in-memory staging store for development/testing.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/tetuya0525/article-ingest-service/internal/article"
)

// Store holds staged articles in a map.
type Store struct {
	mu   sync.RWMutex
	docs map[string]article.Document
}

// New constructs a Store.
func New() *Store {
	return &Store{
		docs: make(map[string]article.Document),
	}
}

// InsertArticle stores a new document.
func (s *Store) InsertArticle(_ context.Context, doc article.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.ID]; exists {
		return errors.New("article already exists")
	}
	s.docs[doc.ID] = doc
	return nil
}

// GetArticle fetches a document by ID.
func (s *Store) GetArticle(_ context.Context, id string) (article.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return article.Document{}, article.ErrNotFound
	}
	return doc, nil
}

// ListArticles returns documents matching the filter, newest first.
func (s *Store) ListArticles(_ context.Context, filter article.ListFilter) ([]article.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]article.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []article.Document{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close does nothing.
func (s *Store) Close() error { return nil }
