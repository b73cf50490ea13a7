package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	foundationerrors "git.home.luguber.info/inful/sitegraph/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegraph/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" help:"Number of builds to show (0 for all)" default:"20"`
	Build string `help:"Show a single build by ID"`
	JSON  bool   `help:"Print entries as JSON"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return foundationerrors.ConfigError("build history is disabled (history.enabled: false)").Build()
	}

	store, err := history.NewSQLiteStore(cfg.HistoryPath(), cfg.History.Keep)
	if err != nil {
		return foundationerrors.BuildError("failed to open build history").WithCause(err).Build()
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	var entries []history.Entry
	if h.Build != "" {
		e, err := store.Get(ctx, h.Build)
		if errors.Is(err, history.ErrNotFound) {
			return foundationerrors.ValidationError("unknown build").WithContext("build_id", h.Build).Build()
		}
		if err != nil {
			return err
		}
		entries = []history.Entry{e}
	} else {
		entries, err = store.Recent(ctx, h.Limit)
		if err != nil {
			return err
		}
	}

	if h.JSON {
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BUILD\tFINISHED\tSTATE\tPAGES\tRENDERED\tHITS\tMISSES\tFULL\tDURATION")
	for _, e := range entries {
		full := "-"
		if e.ForceFull {
			full = e.ForceFullReason
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\t%.0fms\n",
			e.BuildID, e.FinishedAt.Local().Format(time.DateTime), e.State,
			e.TotalPages, e.PagesRendered, e.CacheHits, e.CacheMisses, full, e.DurationMS)
	}
	return tw.Flush()
}
