package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitegraph/internal/build"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Full       bool     `help:"Ignore the build cache and render every page"`
	Strict     bool     `help:"Fail the build on content collisions, invalid files and render failures"`
	NoParallel bool     `name:"no-parallel" help:"Render with a single worker"`
	Changed    []string `help:"Changed source files, trusted as the only edits since the last build" sep:","`
	Quiet      bool     `short:"q" help:"Suppress per-page progress output"`
	JSON       bool     `help:"Print build stats as JSON"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var progress io.Writer
	if !b.Quiet && !b.JSON {
		progress = g.out()
	}
	deps := newBuilderDeps(g.logger(), progress)
	builder, closeHistory := deps.newBuilder(cfg)
	defer closeHistory()

	stats, err := builder.Build(ctx, b.request(cfg.Build.Parallel))
	if stats != nil {
		if b.JSON {
			enc := json.NewEncoder(g.out())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(stats); encErr != nil && err == nil {
				err = encErr
			}
		} else {
			printSummary(g.out(), stats)
		}
	}
	return err
}

func (b *BuildCmd) request(parallel bool) build.Request {
	req := build.Request{
		Parallel:    parallel && !b.NoParallel,
		Incremental: incrementalFlag(b.Full),
		Strict:      b.Strict,
	}
	if len(b.Changed) > 0 {
		req.Changed = b.Changed
	}
	return req
}

func printSummary(w io.Writer, s *build.Stats) {
	_, _ = fmt.Fprintf(w, "Build %s %s: %d pages, %d rendered, %d skipped (cache %d hits, %d misses) in %.0f ms\n",
		s.BuildID, s.State, s.TotalPages, s.PagesRendered, s.PagesSkipped, s.CacheHits, s.CacheMisses, s.Timings.TotalMS)
	if s.ForceFull {
		_, _ = fmt.Fprintf(w, "  full rebuild: %s\n", s.ForceFullReason)
	}
	if s.Skipped {
		_, _ = fmt.Fprintln(w, "  nothing to render")
	}
	for _, c := range s.Collisions {
		_, _ = fmt.Fprintf(w, "  collision: %s\n", c.Error())
	}
	for _, f := range s.Failures {
		_, _ = fmt.Fprintf(w, "  failed: %s: %s\n", f.Page, f.Error)
	}
	for _, warn := range s.Warnings {
		_, _ = fmt.Fprintf(w, "  warning: %s\n", warn)
	}
}
