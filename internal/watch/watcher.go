package watch

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/sitegraph/internal/build"
	"git.home.luguber.info/inful/sitegraph/internal/config"
	foundationerrors "git.home.luguber.info/inful/sitegraph/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegraph/internal/logfields"
)

const (
	defaultDebounce  = 300 * time.Millisecond
	maxDelayFactor   = 10
	shutdownDeadline = 5 * time.Second
)

// ConfigLoader reloads the site configuration.
type ConfigLoader func() (*config.Config, error)

// ServiceFactory creates the build service for a configuration.
type ServiceFactory func(*config.Config) (build.Service, error)

// BuildFunc observes every completed watch build.
type BuildFunc func(batch Batch, stats *build.Stats, err error)

// Watcher rebuilds a site whenever its sources change. Builds run serially;
// changes that arrive during a build are coalesced into the next one.
type Watcher struct {
	mu      sync.Mutex
	cfg     *config.Config
	svc     build.Service
	classes classifier

	load    ConfigLoader
	factory ServiceFactory
	base    build.Request

	logger  *slog.Logger
	metrics http.Handler
	onBuild BuildFunc

	fsw   *fsnotify.Watcher
	group WorkerGroup
	ready chan struct{}
	addr  chan string
}

// New creates a Watcher. base is the request template for every build;
// its Changed field is replaced per batch.
func New(cfg *config.Config, load ConfigLoader, factory ServiceFactory, base build.Request) *Watcher {
	return &Watcher{
		cfg:     cfg,
		classes: newClassifier(cfg),
		load:    load,
		factory: factory,
		base:    base,
		logger:  slog.Default(),
		ready:   make(chan struct{}),
		addr:    make(chan string, 1),
	}
}

func (w *Watcher) WithLogger(logger *slog.Logger) *Watcher {
	if logger != nil {
		w.logger = logger
	}
	return w
}

// WithMetrics serves h on /metrics at metrics.addr while watching.
func (w *Watcher) WithMetrics(h http.Handler) *Watcher {
	w.metrics = h
	return w
}

// OnBuild registers a callback invoked after each build.
func (w *Watcher) OnBuild(fn BuildFunc) *Watcher {
	w.onBuild = fn
	return w
}

// Ready is closed once the initial build finished and events are observed.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// MetricsAddr delivers the bound metrics listener address, if any.
func (w *Watcher) MetricsAddr() <-chan string { return w.addr }

// Config returns the configuration currently in effect.
func (w *Watcher) Config() *config.Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg
}

// Run performs an initial build and then rebuilds on change until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	cfg := w.Config()
	svc, err := w.factory(cfg)
	if err != nil {
		return err
	}
	w.svc = svc

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return foundationerrors.FileSystemError("failed to create file watcher").WithCause(err).Fatal().Build()
	}
	w.fsw = fsw
	defer func() { _ = fsw.Close() }()
	w.watchSources(cfg)

	quiet := cfg.Watch.Debounce
	if quiet <= 0 {
		quiet = defaultDebounce
	}
	deb, err := NewDebouncer(quiet, quiet*maxDelayFactor)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.group.Go(func() { _ = deb.Run(ctx) })
	<-deb.Ready()

	w.runBuild(ctx, Batch{Cause: "initial"})

	w.group.Go(func() { w.buildLoop(ctx, deb) })

	sched, err := w.startScheduler(ctx, deb, cfg.Watch.FullRebuildInterval)
	if err != nil {
		cancel()
		_ = w.group.StopAndWait(context.Background())
		return err
	}

	srv, err := w.startMetricsServer(cfg.Metrics.Addr)
	if err != nil {
		cancel()
		w.stopScheduler(sched)
		_ = w.group.StopAndWait(context.Background())
		return err
	}

	close(w.ready)
	w.logger.Info("Watching for changes",
		slog.String("content", cfg.ContentPath()),
		slog.Duration("debounce", quiet))

	w.eventLoop(ctx, deb)
	return w.shutdown(srv, sched)
}

func (w *Watcher) eventLoop(ctx context.Context, deb *Debouncer) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, deb, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, deb *Debouncer, ev fsnotify.Event) {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return
	}
	w.mu.Lock()
	c, ok := w.classes.classify(ev.Name)
	w.mu.Unlock()
	if !ok {
		return
	}
	if ev.Has(fsnotify.Create) && !c.Reload {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.addDirsRecursive(ev.Name)
		}
	}
	w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	deb.Submit(ctx, c)
}

func (w *Watcher) buildLoop(ctx context.Context, deb *Debouncer) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-deb.Batches():
			w.runBuild(ctx, batch)
		}
	}
}

// runBuild executes one build for batch. A failed configuration reload
// keeps the previous configuration and skips the build.
func (w *Watcher) runBuild(ctx context.Context, batch Batch) {
	if batch.Reload {
		if err := w.reload(); err != nil {
			w.logger.Error("Configuration reload failed; keeping previous configuration", logfields.Error(err))
			w.notify(batch, nil, err)
			return
		}
	}

	req := w.base
	req.Changed = nil
	if !batch.Full && batch.Cause != "initial" {
		req.Changed = batch.Paths
	}

	w.mu.Lock()
	svc := w.svc
	w.mu.Unlock()

	w.logger.Info("Rebuilding",
		slog.String("cause", batch.Cause),
		logfields.Count(len(batch.Paths)),
		slog.Bool("full", batch.Full))
	stats, err := svc.Build(ctx, req)
	if err != nil {
		w.logger.Error("Build failed", logfields.Error(err))
	} else {
		w.logger.Info("Build finished",
			logfields.BuildID(stats.BuildID),
			slog.Int("rendered", stats.PagesRendered),
			logfields.CacheHits(stats.CacheHits),
			logfields.CacheMisses(stats.CacheMisses))
	}
	w.notify(batch, stats, err)
}

func (w *Watcher) notify(batch Batch, stats *build.Stats, err error) {
	if w.onBuild != nil {
		w.onBuild(batch, stats, err)
	}
}

func (w *Watcher) reload() error {
	cfg, err := w.load()
	if err != nil {
		return err
	}
	svc, err := w.factory(cfg)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.cfg = cfg
	w.svc = svc
	w.classes = newClassifier(cfg)
	w.mu.Unlock()

	w.watchSources(cfg)
	w.logger.Info("Configuration reloaded", slog.String("hash", cfg.Hash()))
	return nil
}

// watchSources registers source trees recursively and the configuration
// directories non-recursively. Adding an already watched path is a no-op.
func (w *Watcher) watchSources(cfg *config.Config) {
	for _, dir := range []string{cfg.ContentPath(), cfg.StaticPath(), cfg.LayoutsPath()} {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			w.addDirsRecursive(dir)
		}
	}
	dirs := []string{cfg.Root()}
	if src := cfg.SourceFile(); src != "" {
		dirs = append(dirs, filepath.Dir(src))
	}
	for _, dir := range dirs {
		if err := w.fsw.Add(dir); err != nil {
			w.logger.Warn("Watch add failed", logfields.Path(dir), logfields.Error(err))
		}
	}
}

func (w *Watcher) addDirsRecursive(root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && shouldIgnoreEvent(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// startScheduler schedules the periodic full verification rebuild.
func (w *Watcher) startScheduler(ctx context.Context, deb *Debouncer, interval time.Duration) (gocron.Scheduler, error) {
	if interval <= 0 {
		return nil, nil
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, foundationerrors.InternalError("failed to create scheduler").WithCause(err).Build()
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			w.logger.Debug("Scheduling full verification rebuild")
			deb.Submit(ctx, Change{Full: true})
		}),
		gocron.WithName("full-rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, foundationerrors.ConfigError("invalid full rebuild interval").
			WithContext("interval", interval.String()).WithCause(err).Build()
	}
	s.Start()
	return s, nil
}

func (w *Watcher) stopScheduler(s gocron.Scheduler) {
	if s == nil {
		return
	}
	if err := s.Shutdown(); err != nil {
		w.logger.Warn("Scheduler shutdown error", logfields.Error(err))
	}
}

func (w *Watcher) startMetricsServer(addr string) (*http.Server, error) {
	if addr == "" || w.metrics == nil {
		return nil, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, foundationerrors.ConfigError("metrics address unavailable").
			WithContext("addr", addr).WithCause(err).Build()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", w.metrics)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	w.addr <- ln.Addr().String()

	w.group.Go(func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.logger.Error("Metrics server failed", logfields.Error(err))
		}
	})
	w.logger.Info("Serving metrics", slog.String("addr", ln.Addr().String()))
	return srv, nil
}

func (w *Watcher) shutdown(srv *http.Server, sched gocron.Scheduler) error {
	w.logger.Info("Stopping watch")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancel()

	w.stopScheduler(sched)
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			w.logger.Warn("Metrics server shutdown error", logfields.Error(err))
		}
	}
	return w.group.StopAndWait(ctx)
}
