// Package publisher defines notification publishing for ingested articles.
//
// Downstream enrichment services subscribe to the ingest topic instead of
// polling the staging collection. The concrete transport is selected at
// startup (Pub/Sub in production, memory/noop for tests and local runs).
package publisher

import "context"

// NoOp discards all publishes. Used when notifications are disabled.
type NoOp struct{}

// Publish does nothing and returns an empty message ID.
func (NoOp) Publish(_ context.Context, _ string, _ any) (string, error) {
	return "", nil
}

// Close does nothing.
func (NoOp) Close() error { return nil }
