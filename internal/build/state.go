package build

import (
	"fmt"
	"slices"

	foundationerrors "git.home.luguber.info/inful/sitegraph/internal/foundation/errors"
)

// State is a build lifecycle state.
type State string

const (
	StateIdle           State = "idle"
	StateDiscovering    State = "discovering"
	StateCacheComparing State = "cache_comparing"
	StateRendering      State = "rendering"
	StateFinalizing     State = "finalizing"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

var transitions = map[State][]State{
	StateIdle:           {StateDiscovering, StateFailed},
	StateDiscovering:    {StateCacheComparing, StateFailed},
	StateCacheComparing: {StateRendering, StateFailed},
	StateRendering:      {StateFinalizing, StateFailed},
	StateFinalizing:     {StateDone, StateFailed},
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// CanTransition reports whether from → to is a legal transition.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

// machine tracks the state of one build.
type machine struct {
	state State
	trail []State
}

func newMachine() *machine {
	return &machine{state: StateIdle, trail: []State{StateIdle}}
}

// to moves to the next state; an illegal move is an internal error.
func (m *machine) to(next State) error {
	if !CanTransition(m.state, next) {
		return foundationerrors.InternalError("illegal build state transition").
			WithContext("from", string(m.state)).
			WithContext("to", string(next)).
			WithCause(fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.state, next)).
			Build()
	}
	m.state = next
	m.trail = append(m.trail, next)
	return nil
}

// fail moves to Failed unless the machine already finished.
func (m *machine) fail() {
	if m.state.IsTerminal() {
		return
	}
	m.state = StateFailed
	m.trail = append(m.trail, StateFailed)
}
