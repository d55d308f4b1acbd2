// Package ingest implements the staging pipeline for submitted articles.
package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tetuya0525/article-ingest-service/internal/article"
	"github.com/tetuya0525/article-ingest-service/internal/telemetry"
)

// publishTimeout bounds the notification publish so a slow broker cannot
// hold the request open past the staging write.
const publishTimeout = 5 * time.Second

// Config carries the ingest pipeline knobs.
type Config struct {
	Topic              string
	ArchivePrefix      string
	ArchiveContentType string
	// ArchiveMinBytes is the raw text size below which archiving is skipped.
	ArchiveMinBytes int
}

// Receipt is returned to the client after a successful ingest.
type Receipt struct {
	DocumentID string
	Status     article.Status
}

// Service validates submissions and stages them for downstream enrichment.
type Service struct {
	store     article.Store
	archiver  article.BlobStore
	publisher article.Publisher
	hasher    article.Hasher
	clock     article.Clock
	idGen     article.IDGenerator
	cfg       Config
	logger    *zap.Logger
}

// NewService constructs a Service.
func NewService(
	store article.Store,
	archiver article.BlobStore,
	publisher article.Publisher,
	hasher article.Hasher,
	clock article.Clock,
	idGen article.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Service {
	telemetry.Init()
	return &Service{
		store:     store,
		archiver:  archiver,
		publisher: publisher,
		hasher:    hasher,
		clock:     clock,
		idGen:     idGen,
		cfg:       cfg,
		logger:    logger,
	}
}

// Ingest validates the submission, writes the staging document and publishes
// an ingest notification. The document write is the durability boundary: a
// failed publish is logged and counted but does not fail the request, since
// downstream can reconcile against the staging collection.
func (s *Service) Ingest(ctx context.Context, sub article.Submission) (Receipt, error) {
	if err := sub.Validate(); err != nil {
		telemetry.ObserveIngest(sub.SourceType, telemetry.OutcomeRejected, 0)
		return Receipt{}, err
	}

	id, err := s.idGen.NewID()
	if err != nil {
		telemetry.ObserveIngest(sub.SourceType, telemetry.OutcomeFailed, 0)
		return Receipt{}, fmt.Errorf("generate document id: %w", err)
	}

	doc, err := s.buildDocument(id, sub)
	if err != nil {
		telemetry.ObserveIngest(sub.SourceType, telemetry.OutcomeFailed, 0)
		return Receipt{}, err
	}

	if s.shouldArchive(doc.Content.RawText) {
		uri, err := s.archiver.PutObject(
			ctx,
			fmt.Sprintf("%s/%s.txt", s.cfg.ArchivePrefix, id),
			s.cfg.ArchiveContentType,
			[]byte(doc.Content.RawText),
		)
		if err != nil {
			telemetry.ObserveIngest(sub.SourceType, telemetry.OutcomeFailed, 0)
			return Receipt{}, fmt.Errorf("archive raw text: %w", err)
		}
		doc.ContentURI = uri
	}

	if err := s.store.InsertArticle(ctx, doc); err != nil {
		telemetry.ObserveIngest(sub.SourceType, telemetry.OutcomeFailed, 0)
		return Receipt{}, fmt.Errorf("insert article: %w", err)
	}
	telemetry.ObserveIngest(sub.SourceType, telemetry.OutcomeStaged, len(doc.Content.RawText))

	s.notify(ctx, doc)

	return Receipt{DocumentID: doc.ID, Status: doc.Status}, nil
}

// GetArticle fetches one staged document.
func (s *Service) GetArticle(ctx context.Context, id string) (article.Document, error) {
	return s.store.GetArticle(ctx, id)
}

// ListArticles returns staged documents matching the filter.
func (s *Service) ListArticles(ctx context.Context, filter article.ListFilter) ([]article.Document, error) {
	return s.store.ListArticles(ctx, filter)
}

// Ready reports whether the staging store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) buildDocument(id string, sub article.Submission) (article.Document, error) {
	hash, err := s.hasher.Hash([]byte(sub.Content.RawText))
	if err != nil {
		return article.Document{}, fmt.Errorf("hash raw text: %w", err)
	}

	keywords := sub.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	structured := sub.Content.StructuredData
	if structured == nil {
		structured = map[string]any{}
	}
	now := s.clock.Now()

	return article.Document{
		ID:          id,
		Title:       sub.Title,
		SourceType:  sub.SourceType,
		Description: sub.Description,
		Keywords:    keywords,
		Content: article.Content{
			RawText:        sub.Content.RawText,
			StructuredData: structured,
		},
		AIGenerated: article.AIGenerated{
			Categories: []string{},
			Tags:       []string{},
		},
		Status:      article.StatusReceived,
		ContentHash: hash,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *Service) shouldArchive(rawText string) bool {
	if s.archiver == nil {
		return false
	}
	return len(rawText) >= s.cfg.ArchiveMinBytes
}

func (s *Service) notify(ctx context.Context, doc article.Document) {
	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	_, err := s.publisher.Publish(publishCtx, s.cfg.Topic, article.Notification{
		DocumentID: doc.ID,
		Status:     doc.Status,
		SourceType: doc.SourceType,
		CreatedAt:  doc.CreatedAt,
	})
	if err != nil {
		telemetry.ObserveNotification("error")
		s.logger.Warn("ingest notification failed",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
		return
	}
	telemetry.ObserveNotification("ok")
}
