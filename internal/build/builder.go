package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitegraph/internal/assets"
	"git.home.luguber.info/inful/sitegraph/internal/config"
	"git.home.luguber.info/inful/sitegraph/internal/discovery"
	foundationerrors "git.home.luguber.info/inful/sitegraph/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegraph/internal/history"
	"git.home.luguber.info/inful/sitegraph/internal/incremental"
	"git.home.luguber.info/inful/sitegraph/internal/logfields"
	"git.home.luguber.info/inful/sitegraph/internal/metrics"
	"git.home.luguber.info/inful/sitegraph/internal/observability"
	"git.home.luguber.info/inful/sitegraph/internal/pathresolve"
	"git.home.luguber.info/inful/sitegraph/internal/render"
	"git.home.luguber.info/inful/sitegraph/internal/site"
	"git.home.luguber.info/inful/sitegraph/internal/util/sets"
)

// PipelineFactoryFunc builds the per-worker pipeline factory for a
// discovered site.
type PipelineFactoryFunc func(s *site.Site) render.PipelineFactory

// Builder is the canonical Service implementation.
type Builder struct {
	cfg        *config.Config
	logger     *slog.Logger
	recorder   metrics.Recorder
	history    history.Store
	discoverer *discovery.Discoverer
	factory    PipelineFactoryFunc
	assets     AssetProcessor
	post       []PostProcessor
	progress   *render.Progress

	last *site.Site
}

// New creates a Builder for cfg with the HTML pipeline and static asset
// copier.
func New(cfg *config.Config) *Builder {
	return &Builder{
		cfg:        cfg,
		logger:     slog.Default(),
		recorder:   metrics.NoopRecorder{},
		discoverer: discovery.New(),
		factory:    render.NewHTMLFactory,
		assets:     assets.NewCopier(),
	}
}

// WithLogger sets a custom logger.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	b.discoverer.WithLogger(logger)
	if c, ok := b.assets.(*assets.Copier); ok {
		c.WithLogger(logger)
	}
	return b
}

// WithRecorder sets the metrics recorder.
func (b *Builder) WithRecorder(r metrics.Recorder) *Builder {
	if r != nil {
		b.recorder = r
	}
	return b
}

// WithHistory records every finished build in store.
func (b *Builder) WithHistory(store history.Store) *Builder {
	b.history = store
	return b
}

// WithPipelineFactory replaces the render pipeline.
func (b *Builder) WithPipelineFactory(f PipelineFactoryFunc) *Builder {
	b.factory = f
	return b
}

// WithAssetProcessor replaces the asset processor; nil disables assets.
func (b *Builder) WithAssetProcessor(a AssetProcessor) *Builder {
	b.assets = a
	return b
}

// WithPostProcessors appends post-processors, run in order.
func (b *Builder) WithPostProcessors(p ...PostProcessor) *Builder {
	b.post = append(b.post, p...)
	return b
}

// WithProgress enables per-page progress output.
func (b *Builder) WithProgress(p *render.Progress) *Builder {
	b.progress = p
	return b
}

// Config returns the configuration builds run with.
func (b *Builder) Config() *config.Config { return b.cfg }

// Site returns the site graph of the most recent build, or nil.
func (b *Builder) Site() *site.Site { return b.last }

// run carries the state of one Build call.
type run struct {
	b       *Builder
	ctx     context.Context
	log     *slog.Logger
	m       *machine
	stats   *Stats
	start   time.Time
	strict  bool
	cache   *incremental.Cache
	layouts string
}

// Build runs one build.
func (b *Builder) Build(ctx context.Context, req Request) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buildID := uuid.NewString()
	ctx = observability.WithBuildID(ctx, buildID)
	r := &run{
		b:      b,
		ctx:    ctx,
		log:    observability.Logger(ctx, b.logger),
		m:      newMachine(),
		stats:  &Stats{BuildID: buildID, State: StateIdle},
		start:  time.Now(),
		strict: req.Strict || b.cfg.Build.Strict,
	}
	return r.execute(req)
}

func (r *run) execute(req Request) (*Stats, error) {
	b := r.b
	cfg := b.cfg

	// Discovering
	if err := r.enter(StateDiscovering); err != nil {
		return r.fail(err)
	}
	stageStart := time.Now()
	res, err := b.discoverer.Discover(cfg)
	if err != nil {
		return r.fail(err)
	}
	s := res.Site
	b.last = s
	r.stats.TotalPages = len(s.Pages())
	r.stats.Collisions = res.Collisions
	r.stats.Timings.DiscoveryMS = r.stage("discovering", stageStart)

	var contentProblems []error
	for _, p := range res.Problems {
		r.warn(p)
		if !foundationerrors.HasSeverity(p, foundationerrors.SeverityWarning) {
			contentProblems = append(contentProblems, p)
		}
	}
	for _, c := range res.Collisions {
		r.stats.Warnings = append(r.stats.Warnings, c.Error())
	}
	if r.strict {
		if len(res.Collisions) > 0 {
			errs := make([]error, 0, len(res.Collisions))
			for _, c := range res.Collisions {
				errs = append(errs, c)
			}
			return r.fail(foundationerrors.ContentError("content collisions").
				WithContext("collisions", len(res.Collisions)).
				WithCause(fmt.Errorf("%w: %w", ErrStrictCollisions, errors.Join(errs...))).
				Build())
		}
		if len(contentProblems) > 0 {
			return r.fail(foundationerrors.ContentError("content files could not be parsed").
				WithContext("files", len(contentProblems)).
				WithCause(fmt.Errorf("%w: %w", ErrStrictContent, errors.Join(contentProblems...))).
				Build())
		}
	}

	// CacheComparing
	if err := r.enter(StateCacheComparing); err != nil {
		return r.fail(err)
	}
	stageStart = time.Now()
	decision := r.compare(s, res.Files, req)
	toRender := planRender(s, decision)
	r.stats.PagesSkipped = r.stats.TotalPages - len(toRender)
	r.stats.Skipped = len(toRender) == 0
	r.stats.Timings.CacheCompareMS = r.stage("cache_comparing", stageStart)
	r.log.Info("Render plan ready",
		logfields.Count(len(toRender)),
		logfields.CacheHits(r.stats.CacheHits),
		logfields.CacheMisses(r.stats.CacheMisses))

	// Rendering
	if err := r.enter(StateRendering); err != nil {
		return r.fail(err)
	}
	stageStart = time.Now()
	coord := render.NewCoordinator(r.workers(req), b.factory(s)).
		WithLogger(r.log).
		WithProgress(b.progress).
		WithRecorder(b.recorder)
	result, err := coord.Run(r.ctx, toRender)
	if err != nil {
		return r.fail(err)
	}
	r.stats.PagesRendered = len(result.Rendered)
	drop := append([]string(nil), res.Invalid...)
	for _, f := range result.Failures {
		r.stats.Failures = append(r.stats.Failures, PageFailure{Page: f.Page.RelPath, Error: f.Err.Error(), Panic: f.Panic})
		if f.Page.SourcePath != "" {
			drop = append(drop, f.Page.SourcePath)
		}
	}
	r.stats.Timings.RenderingMS = r.stage("rendering", stageStart)
	if r.strict && len(result.Failures) > 0 {
		return r.fail(foundationerrors.RenderError("pages failed to render").
			Fatal().
			WithContext("failures", len(result.Failures)).
			WithCause(ErrStrictRender).
			Build())
	}

	stageStart = time.Now()
	if b.assets != nil {
		n, err := b.assets.Process(r.ctx, s)
		switch {
		case err == nil:
		case foundationerrors.HasSeverity(err, foundationerrors.SeverityWarning):
			r.warn(err)
		default:
			return r.fail(err)
		}
		r.stats.AssetsCopied = n
	}
	r.stats.Timings.AssetsMS = r.stage("assets", stageStart)

	stageStart = time.Now()
	for _, pp := range b.post {
		if err := pp.PostProcess(r.ctx, s, r.stats); err != nil {
			return r.fail(foundationerrors.BuildError("post-processor failed").
				WithContext("name", pp.Name()).
				WithCause(err).
				Build())
		}
	}
	r.stats.Timings.PostProcessMS = r.stage("post_process", stageStart)

	// Finalizing
	if err := r.enter(StateFinalizing); err != nil {
		return r.fail(err)
	}
	outputs := claimedOutputs(s)
	if prev := r.cache.Record(); prev != nil {
		r.stats.OutputsRemoved = r.pruneStale(s.OutputDir(), prev.Outputs, outputs)
	}
	r.cache.Update(decision.Hashes, s.ConfigHash(), r.layouts, r.stats.BuildID, drop...)
	r.cache.SetOutputs(outputs)
	if err := r.cache.Save(); err != nil {
		r.warn(foundationerrors.CacheError("build cache not saved").WithCause(err).Build())
	}
	if err := r.enter(StateDone); err != nil {
		return r.fail(err)
	}
	r.finish()
	return r.stats, nil
}

// compare loads the cache and decides hits and misses.
func (r *run) compare(s *site.Site, files []string, req Request) incremental.Decision {
	cfg := r.b.cfg
	r.cache = incremental.New(cfg.CachePath(), s.Root(), cfg.LegacyCachePaths()...).WithLogger(r.log)
	r.cache.Load()

	layouts, err := incremental.HashDir(cfg.LayoutsPath())
	if err != nil {
		r.warn(foundationerrors.CacheError("layouts could not be hashed").WithCause(err).Build())
	}
	r.layouts = layouts

	kind := incremental.Incremental
	flag := req.Incremental
	if flag == nil {
		flag = cfg.Build.Incremental
	}
	if flag != nil && !*flag {
		kind = incremental.Full
	}

	d := r.cache.Decide(incremental.Request{
		Kind:        kind,
		Candidates:  files,
		Changed:     r.changedSet(s, req.Changed),
		ConfigHash:  s.ConfigHash(),
		LayoutsHash: layouts,
		Policy:      cfg.Build.ChangedSetPolicy,
	})

	r.stats.CacheHits = len(d.Hits)
	r.stats.CacheMisses = len(d.Misses)
	r.stats.ForceFull = d.ForceFull
	r.stats.ForceFullReason = string(d.Reason)
	r.b.recorder.AddCacheHits(len(d.Hits))
	r.b.recorder.AddCacheMisses(len(d.Misses))
	if d.ForceFull {
		r.b.recorder.IncForceFull(string(d.Reason))
	}
	return d
}

// changedSet canonicalizes the changed-file hint; nil stays nil.
func (r *run) changedSet(s *site.Site, changed []string) sets.Set[string] {
	if changed == nil {
		return nil
	}
	out := sets.New[string]()
	for _, c := range changed {
		if !filepath.IsAbs(c) {
			c = filepath.Join(s.Root(), c)
		}
		resolved, err := pathresolve.Resolve(c, s.Root())
		if err != nil {
			out.Add(filepath.Clean(c))
			continue
		}
		out.Add(resolved)
	}
	return out
}

func (r *run) workers(req Request) int {
	if !req.Parallel {
		return 1
	}
	if n := r.b.cfg.Build.Workers; n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

func (r *run) enter(next State) error {
	if err := r.m.to(next); err != nil {
		return err
	}
	r.stats.State = next
	r.ctx = observability.WithStage(r.ctx, string(next))
	r.log = observability.Logger(r.ctx, r.b.logger)
	r.log.Debug("Build state changed", logfields.State(string(next)))
	return nil
}

func (r *run) stage(name string, start time.Time) float64 {
	d := time.Since(start)
	r.b.recorder.ObserveStageDuration(name, d)
	return ms(d)
}

func (r *run) warn(err error) {
	r.stats.Warnings = append(r.stats.Warnings, err.Error())
	r.log.Warn("Build warning", logfields.Error(err))
}

func (r *run) fail(err error) (*Stats, error) {
	r.m.fail()
	r.stats.State = StateFailed
	r.stats.Timings.TotalMS = ms(time.Since(r.start))
	r.b.recorder.IncBuildOutcome(metrics.OutcomeFailed)
	r.b.recorder.ObserveBuildDuration(time.Since(r.start))
	r.log.Error("Build failed", logfields.Error(err))
	r.record()
	return r.stats, err
}

func (r *run) finish() {
	total := time.Since(r.start)
	r.stats.Timings.TotalMS = ms(total)
	r.b.recorder.ObserveBuildDuration(total)

	outcome := metrics.OutcomeSuccess
	switch {
	case len(r.stats.Failures) > 0 || len(r.stats.Warnings) > 0:
		outcome = metrics.OutcomeWarning
	case r.stats.Skipped:
		outcome = metrics.OutcomeSkipped
	}
	r.b.recorder.IncBuildOutcome(outcome)

	r.log.Info("Build finished",
		logfields.State(string(r.stats.State)),
		slog.Int("rendered", r.stats.PagesRendered),
		slog.Int("skipped", r.stats.PagesSkipped),
		slog.Int("failures", len(r.stats.Failures)),
		logfields.DurationMS(r.stats.Timings.TotalMS))
	r.record()
}

func (r *run) record() {
	if r.b.history == nil {
		return
	}
	if err := r.b.history.Record(r.ctx, r.stats.HistoryEntry()); err != nil {
		r.log.Warn("Failed to record build history", logfields.Error(err))
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
