package watch

import (
	"context"
	"time"

	foundationerrors "git.home.luguber.info/inful/sitegraph/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegraph/internal/util/sets"
)

// Change is one observed change.
type Change struct {
	// Path is a changed content file; empty for changes that only need a
	// rebuild (static files, layouts).
	Path string
	// Full requests a full rebuild.
	Full bool
	// Reload requests a configuration reload (implies Full).
	Reload bool
}

// Batch is a coalesced burst of changes.
type Batch struct {
	// Paths lists changed content files, sorted. It is never nil for a
	// batch built from changes.
	Paths    []string
	Full     bool
	Reload   bool
	Requests int
	// Cause is "quiet" or "max_delay".
	Cause string
}

// Debouncer coalesces bursts of changes into batches:
//   - a batch is emitted once no change arrived for the quiet window
//   - a batch is never postponed longer than the max delay
//   - while the consumer is busy, changes keep accumulating into one
//     follow-up batch
type Debouncer struct {
	quiet    time.Duration
	maxDelay time.Duration
	in       chan Change
	out      chan Batch
	ready    chan struct{}
}

// NewDebouncer validates the windows and creates a Debouncer.
func NewDebouncer(quiet, maxDelay time.Duration) (*Debouncer, error) {
	if quiet <= 0 {
		return nil, foundationerrors.ValidationError("quiet window must be > 0").Build()
	}
	if maxDelay < quiet {
		return nil, foundationerrors.ValidationError("max delay must not be shorter than the quiet window").Build()
	}
	return &Debouncer{
		quiet:    quiet,
		maxDelay: maxDelay,
		in:       make(chan Change, 256),
		out:      make(chan Batch, 1),
		ready:    make(chan struct{}),
	}, nil
}

// Ready is closed once Run is accepting changes.
func (d *Debouncer) Ready() <-chan struct{} { return d.ready }

// Batches delivers coalesced batches.
func (d *Debouncer) Batches() <-chan Batch { return d.out }

// Submit queues a change.
func (d *Debouncer) Submit(ctx context.Context, c Change) {
	select {
	case d.in <- c:
	case <-ctx.Done():
	}
}

type accumulator struct {
	paths  sets.Set[string]
	full   bool
	reload bool
	count  int
}

func (a *accumulator) add(c Change) {
	if a.paths == nil {
		a.paths = sets.New[string]()
	}
	if c.Path != "" {
		a.paths.Add(c.Path)
	}
	a.full = a.full || c.Full || c.Reload
	a.reload = a.reload || c.Reload
	a.count++
}

func (a *accumulator) batch(cause string) Batch {
	paths := sets.Sorted(a.paths)
	if paths == nil {
		paths = []string{}
	}
	return Batch{Paths: paths, Full: a.full, Reload: a.reload, Requests: a.count, Cause: cause}
}

// Run processes changes until ctx is done.
func (d *Debouncer) Run(ctx context.Context) error {
	quietTimer := stoppedTimer()
	maxTimer := stoppedTimer()
	var (
		quietC <-chan time.Time
		maxC   <-chan time.Time
		acc    accumulator
	)

	close(d.ready)

	emit := func(cause string) bool {
		select {
		case d.out <- acc.batch(cause):
			acc = accumulator{}
			return true
		default:
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			quietTimer.Stop()
			maxTimer.Stop()
			return nil

		case c := <-d.in:
			acc.add(c)
			resetTimer(quietTimer, d.quiet)
			quietC = quietTimer.C
			if acc.count == 1 {
				resetTimer(maxTimer, d.maxDelay)
				maxC = maxTimer.C
			}

		case <-quietC:
			if emit("quiet") {
				quietC, maxC = nil, nil
				maxTimer.Stop()
				continue
			}
			// Consumer busy: retry after another quiet window.
			resetTimer(quietTimer, d.quiet)

		case <-maxC:
			maxC = nil
			if emit("max_delay") {
				quietC = nil
				quietTimer.Stop()
			}
		}
	}
}

func stoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return t
}

func resetTimer(t *time.Timer, after time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(after)
}
