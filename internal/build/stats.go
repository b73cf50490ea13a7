package build

import (
	"git.home.luguber.info/inful/sitegraph/internal/history"
	"git.home.luguber.info/inful/sitegraph/internal/site"
)

// Timings holds phase durations in milliseconds.
type Timings struct {
	DiscoveryMS    float64 `json:"discovery_ms"`
	CacheCompareMS float64 `json:"cache_compare_ms"`
	RenderingMS    float64 `json:"rendering_ms"`
	AssetsMS       float64 `json:"assets_ms"`
	PostProcessMS  float64 `json:"post_process_ms"`
	TotalMS        float64 `json:"total_ms"`
}

// PageFailure is a page that failed to render.
type PageFailure struct {
	Page  string `json:"page"`
	Error string `json:"error"`
	Panic bool   `json:"panic,omitempty"`
}

// Stats summarizes one build.
type Stats struct {
	BuildID     string `json:"build_id"`
	TotalPages  int    `json:"total_pages"`
	CacheHits   int    `json:"cache_hits"`
	CacheMisses int    `json:"cache_misses"`
	// Skipped is true when nothing needed rendering.
	Skipped         bool             `json:"skipped"`
	ForceFull       bool             `json:"force_full"`
	ForceFullReason string           `json:"force_full_reason,omitempty"`
	PagesRendered   int              `json:"pages_rendered"`
	PagesSkipped    int              `json:"pages_skipped"`
	AssetsCopied    int              `json:"assets_copied"`
	OutputsRemoved  int              `json:"outputs_removed"`
	Failures        []PageFailure    `json:"failures,omitempty"`
	Collisions      []site.Collision `json:"collisions,omitempty"`
	Warnings        []string         `json:"warnings,omitempty"`
	Timings         Timings          `json:"timings"`
	State           State            `json:"state"`
}

// Succeeded reports whether the build finished in Done.
func (s *Stats) Succeeded() bool { return s.State == StateDone }

// HistoryEntry converts the stats to a history entry.
func (s *Stats) HistoryEntry() history.Entry {
	failed := make([]string, 0, len(s.Failures))
	for _, f := range s.Failures {
		failed = append(failed, f.Page)
	}
	return history.Entry{
		BuildID:         s.BuildID,
		State:           string(s.State),
		ForceFull:       s.ForceFull,
		ForceFullReason: s.ForceFullReason,
		TotalPages:      s.TotalPages,
		PagesRendered:   s.PagesRendered,
		PagesSkipped:    s.PagesSkipped,
		CacheHits:       s.CacheHits,
		CacheMisses:     s.CacheMisses,
		Collisions:      len(s.Collisions),
		DurationMS:      s.Timings.TotalMS,
		Failed:          failed,
	}
}
