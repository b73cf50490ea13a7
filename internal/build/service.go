package build

import (
	"context"

	"git.home.luguber.info/inful/sitegraph/internal/site"
)

// Service runs builds. Builder is the canonical implementation; watch mode
// and the CLI depend on this interface.
type Service interface {
	Build(ctx context.Context, req Request) (*Stats, error)
}

// Request holds per-invocation build options.
type Request struct {
	// Parallel enables the worker pool; false renders on one worker.
	Parallel bool
	// Incremental overrides build.incremental; nil leaves the decision to
	// configuration, and unset configuration means incremental whenever a
	// persisted cache loads.
	Incremental *bool
	// Changed is an optional hint of changed source files, absolute or
	// relative to the site root. nil means no hint.
	Changed []string
	// Strict promotes collisions, content problems and render failures to
	// build failures. It is combined with build.strict.
	Strict bool
}

// AssetProcessor copies or produces non-page output.
type AssetProcessor interface {
	Process(ctx context.Context, s *site.Site) (int, error)
}

// PostProcessor runs after rendering over the finished site. It must treat
// the site as read-only.
type PostProcessor interface {
	Name() string
	PostProcess(ctx context.Context, s *site.Site, stats *Stats) error
}
