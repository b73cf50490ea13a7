package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"git.home.luguber.info/inful/sitegraph/internal/build"
	"git.home.luguber.info/inful/sitegraph/internal/config"
	"git.home.luguber.info/inful/sitegraph/internal/logfields"
	"git.home.luguber.info/inful/sitegraph/internal/metrics"
	"git.home.luguber.info/inful/sitegraph/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Strict      bool   `help:"Treat collisions, invalid files and render failures as build failures"`
	NoParallel  bool   `name:"no-parallel" help:"Render with a single worker"`
	MetricsAddr string `name:"metrics-addr" help:"Serve Prometheus metrics on this address (overrides metrics.addr)"`
}

func (wc *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if wc.MetricsAddr != "" {
		cfg.Metrics.Addr = wc.MetricsAddr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := g.logger()
	deps := newBuilderDeps(logger, nil)
	if err := metrics.RegisterRuntimeCollectors(deps.registry); err != nil {
		logger.Warn("Runtime metrics unavailable", logfields.Error(err))
	}

	var (
		mu      sync.Mutex
		closers []func()
	)
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range closers {
			c()
		}
	}()
	factory := func(c *config.Config) (build.Service, error) {
		b, closeHistory := deps.newBuilder(c)
		mu.Lock()
		closers = append(closers, closeHistory)
		mu.Unlock()
		return b, nil
	}

	base := build.Request{
		Parallel: cfg.Build.Parallel && !wc.NoParallel,
		Strict:   wc.Strict,
	}
	w := watch.New(cfg, root.LoadConfig, factory, base).
		WithLogger(logger).
		WithMetrics(metrics.HTTPHandler(deps.registry)).
		OnBuild(func(batch watch.Batch, stats *build.Stats, err error) {
			if err != nil || stats == nil {
				return
			}
			logger.Debug("Watch build summary",
				logfields.BuildID(stats.BuildID),
				slog.String("cause", batch.Cause),
				logfields.Count(len(stats.Failures)))
		})

	return w.Run(ctx)
}
