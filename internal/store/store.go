// Package store persists pull request review records.
package store

import "context"

// Record is a partial pull request row keyed by column name. Values may be
// strings, numbers, bools, or list/map values which are stored as JSON.
type Record map[string]any

// Store is the persistence interface for review records.
type Store interface {
	// Upsert updates the row whose html_url matches the record, inserting a
	// new row when none exists. html_url is required.
	Upsert(ctx context.Context, rec Record) error

	// UpsertAsync performs Upsert on a background goroutine. Failures are
	// logged, never returned.
	UpsertAsync(rec Record)

	// GetRecord returns the row for a pull request html_url, or nil when no
	// row exists.
	GetRecord(ctx context.Context, htmlURL string) (Record, error)

	// ListRecords returns the most recently edited rows, newest first.
	ListRecords(ctx context.Context, limit int) ([]Record, error)

	Migrate(ctx context.Context) error
	Close() error
}
