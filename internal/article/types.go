// Package article defines core types shared across subsystems.
package article

import (
	"time"
)

// Status represents the lifecycle state of a staged article.
type Status string

// Article status values persisted in the staging store. Ingest always writes
// StatusReceived; later states are written by downstream enrichment services
// and only read back here.
const (
	StatusReceived   Status = "received"
	StatusProcessing Status = "processing"
	StatusEnriched   Status = "enriched"
	StatusFailed     Status = "failed"
)

// Content carries the article body and any source-specific structured payload.
type Content struct {
	RawText        string         `json:"rawText"`
	StructuredData map[string]any `json:"structuredData"`
}

// AIGenerated holds enrichment output. Ingest writes the empty placeholder;
// the enrichment pipeline fills it in later.
type AIGenerated struct {
	Categories []string `json:"categories"`
	Tags       []string `json:"tags"`
}

// Submission is the client-provided article payload.
type Submission struct {
	Title       string   `json:"title"`
	SourceType  string   `json:"sourceType"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Content     *Content `json:"content"`
}

// Document is the record persisted in the staging collection.
type Document struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	SourceType  string      `json:"sourceType"`
	Description string      `json:"description"`
	Keywords    []string    `json:"keywords"`
	Content     Content     `json:"content"`
	AIGenerated AIGenerated `json:"aiGenerated"`
	Status      Status      `json:"status"`
	ContentHash string      `json:"contentHash,omitempty"`
	ContentURI  string      `json:"contentURI,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// ListFilter narrows ListArticles results.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

// Notification is the payload published after a successful ingest.
type Notification struct {
	DocumentID string    `json:"documentId"`
	Status     Status    `json:"status"`
	SourceType string    `json:"sourceType"`
	CreatedAt  time.Time `json:"createdAt"`
}
