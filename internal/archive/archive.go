// Package archive provides blob storage for raw article text.
//
// The staging document keeps the raw text inline; the archive additionally
// preserves a copy in durable blob storage so downstream reprocessing never
// depends on the staging collection's retention.
package archive

import "context"

// NoOp discards all objects. Used when archiving is disabled.
type NoOp struct{}

// PutObject discards the data and returns an empty URI.
func (NoOp) PutObject(_ context.Context, _ string, _ string, _ []byte) (string, error) {
	return "", nil
}
