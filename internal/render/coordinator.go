package render

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitegraph/internal/content"
	foundationerrors "git.home.luguber.info/inful/sitegraph/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegraph/internal/logfields"
	"git.home.luguber.info/inful/sitegraph/internal/metrics"
)

// Failure is a page that could not be rendered.
type Failure struct {
	Page  *content.Page
	Err   error
	Panic bool
}

// Result summarizes one coordinator run.
type Result struct {
	Rendered []*content.Page
	Failures []Failure
	Duration time.Duration
}

// Coordinator distributes pages over a fixed pool of workers.
type Coordinator struct {
	workers  int
	factory  PipelineFactory
	progress *Progress
	logger   *slog.Logger
	recorder metrics.Recorder
}

// NewCoordinator creates a coordinator with the given pool size (minimum 1).
func NewCoordinator(workers int, factory PipelineFactory) *Coordinator {
	if workers < 1 {
		workers = 1
	}
	return &Coordinator{
		workers:  workers,
		factory:  factory,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
}

// WithLogger sets a custom logger.
func (c *Coordinator) WithLogger(logger *slog.Logger) *Coordinator {
	c.logger = logger
	return c
}

// WithProgress enables progress output.
func (c *Coordinator) WithProgress(p *Progress) *Coordinator {
	c.progress = p
	return c
}

// WithRecorder sets the metrics recorder.
func (c *Coordinator) WithRecorder(r metrics.Recorder) *Coordinator {
	if r != nil {
		c.recorder = r
	}
	return c
}

// Workers returns the configured pool size.
func (c *Coordinator) Workers() int { return c.workers }

// Run renders pages. Pipelines for every worker are created first; a factory
// error aborts the run before any page is rendered. Otherwise Run returns
// no error and per-page problems are listed in Result.Failures. Results are
// sorted by content path.
func (c *Coordinator) Run(ctx context.Context, pages []*content.Page) (Result, error) {
	start := time.Now()
	if len(pages) == 0 {
		return Result{}, nil
	}

	n := min(c.workers, len(pages))
	pipelines := make([]Pipeline, n)
	for i := range n {
		p, err := c.factory(i)
		if err != nil {
			return Result{}, foundationerrors.RenderError("failed to create render pipeline").
				Fatal().
				WithContext("worker", i).
				WithCause(err).
				Build()
		}
		pipelines[i] = p
	}

	c.progress.Start(len(pages))
	jobs := make(chan *content.Page, len(pages))
	for _, p := range pages {
		jobs <- p
	}
	close(jobs)

	var (
		mu     sync.Mutex
		result Result
		wg     sync.WaitGroup
	)
	for i, pipeline := range pipelines {
		wg.Add(1)
		go func(id int, pipeline Pipeline) {
			defer wg.Done()
			for page := range jobs {
				pageStart := time.Now()
				err, panicked := c.renderOne(ctx, pipeline, page)
				c.recorder.ObservePageRender(time.Since(pageStart), err == nil)
				c.progress.Done(page, err)

				mu.Lock()
				if err != nil {
					result.Failures = append(result.Failures, Failure{Page: page, Err: err, Panic: panicked})
				} else {
					result.Rendered = append(result.Rendered, page)
				}
				mu.Unlock()

				if err != nil {
					c.logger.Warn("Page render failed",
						logfields.Page(page.RelPath),
						logfields.Worker(id),
						logfields.Error(err))
				}
			}
		}(i, pipeline)
	}
	wg.Wait()

	sort.Slice(result.Rendered, func(i, j int) bool { return result.Rendered[i].RelPath < result.Rendered[j].RelPath })
	sort.Slice(result.Failures, func(i, j int) bool { return result.Failures[i].Page.RelPath < result.Failures[j].Page.RelPath })
	result.Duration = time.Since(start)
	return result, nil
}

func (c *Coordinator) renderOne(ctx context.Context, pipeline Pipeline, page *content.Page) (err error, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("Render panic", logfields.Page(page.RelPath), slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("panic while rendering %s: %v", page.RelPath, r)
			panicked = true
		}
	}()
	return pipeline.Render(ctx, page), false
}
