// Package api exposes the HTTP interface for the article ingest service.
package api
