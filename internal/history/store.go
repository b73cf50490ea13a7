package history

import "context"

// Store persists build history entries.
type Store interface {
	// Record appends an entry and applies retention.
	Record(ctx context.Context, e Entry) error

	// Recent returns up to n entries, newest first.
	Recent(ctx context.Context, n int) ([]Entry, error)

	// Get returns the entry for one build.
	Get(ctx context.Context, buildID string) (Entry, error)

	// Close releases resources.
	Close() error
}
