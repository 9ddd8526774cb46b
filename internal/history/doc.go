// Package history keeps an append-only SQLite journal of image batches and
// video task transitions for later inspection.
package history
