// Package history persists a summary of every build in SQLite so past
// builds can be listed with `sitegraph history`.
package history

import "time"

// Entry summarizes one finished build.
type Entry struct {
	BuildID         string    `json:"build_id"`
	FinishedAt      time.Time `json:"finished_at"`
	State           string    `json:"state"`
	ForceFull       bool      `json:"force_full"`
	ForceFullReason string    `json:"force_full_reason,omitempty"`
	TotalPages      int       `json:"total_pages"`
	PagesRendered   int       `json:"pages_rendered"`
	PagesSkipped    int       `json:"pages_skipped"`
	CacheHits       int       `json:"cache_hits"`
	CacheMisses     int       `json:"cache_misses"`
	Collisions      int       `json:"collisions"`
	DurationMS      float64   `json:"duration_ms"`
	// Failed lists content paths of pages that failed to render.
	Failed []string `json:"failed,omitempty"`
}
