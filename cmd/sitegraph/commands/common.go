// Package commands implements the sitegraph CLI subcommands.
package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitegraph/internal/build"
	"git.home.luguber.info/inful/sitegraph/internal/config"
	foundationerrors "git.home.luguber.info/inful/sitegraph/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegraph/internal/history"
	"git.home.luguber.info/inful/sitegraph/internal/logfields"
	"git.home.luguber.info/inful/sitegraph/internal/metrics"
	"git.home.luguber.info/inful/sitegraph/internal/render"
)

// Global carries shared state into subcommands.
type Global struct {
	Out    io.Writer
	Logger *slog.Logger
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Global) logger() *slog.Logger {
	if g == nil || g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

// CLI definition & global flags.
type CLI struct {
	Root    string `short:"r" help:"Site root directory" default:"."`
	Config  string `short:"c" help:"Configuration file, relative to the site root (default: sitegraph.yaml)"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build      BuildCmd      `cmd:"" help:"Build the site"`
	Watch      WatchCmd      `cmd:"" help:"Build the site and rebuild on change"`
	ConfigHash ConfigHashCmd `cmd:"" name:"config-hash" help:"Print the configuration hash"`
	History    HistoryCmd    `cmd:"" help:"List recent builds"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// LoadConfig loads the configuration for the selected site root.
func (c *CLI) LoadConfig() (*config.Config, error) {
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return nil, foundationerrors.ConfigError("invalid site root").
			WithContext("root", c.Root).WithCause(err).Build()
	}
	return config.Load(root, c.Config)
}

// builderDeps are the collaborators shared by build and watch.
type builderDeps struct {
	registry *prom.Registry
	recorder *metrics.PrometheusRecorder
	progress *render.Progress
	logger   *slog.Logger
}

func newBuilderDeps(logger *slog.Logger, progress io.Writer) *builderDeps {
	reg := prom.NewRegistry()
	d := &builderDeps{
		registry: reg,
		recorder: metrics.NewPrometheusRecorder(reg),
		logger:   logger,
	}
	if progress != nil {
		d.progress = render.NewProgress(progress)
	}
	return d
}

// newBuilder wires a Builder for cfg. The returned closer releases the
// history store, if one was opened.
func (d *builderDeps) newBuilder(cfg *config.Config) (*build.Builder, func()) {
	b := build.New(cfg).
		WithLogger(d.logger).
		WithRecorder(d.recorder).
		WithProgress(d.progress)

	closer := func() {}
	if cfg.History.Enabled {
		store, err := history.NewSQLiteStore(cfg.HistoryPath(), cfg.History.Keep)
		if err != nil {
			d.logger.Warn("Build history unavailable", logfields.Error(err))
		} else {
			b = b.WithHistory(store)
			closer = func() { _ = store.Close() }
		}
	}
	return b, closer
}

func incrementalFlag(full bool) *bool {
	if !full {
		return nil
	}
	v := false
	return &v
}
