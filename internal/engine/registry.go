package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/openmda/mda-core/internal/measurement"
)

// runState is the engine's mutable record of one run. All field access
// goes through its mutex; snapshots copy the Run value out.
type runState struct {
	mu sync.Mutex

	run             Run
	cancelRequested bool
	cancel          context.CancelFunc
}

func (rs *runState) snapshot() Run {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	out := rs.run
	out.Devices = append([]string(nil), rs.run.Devices...)
	out.Points = append([]measurement.DataPoint(nil), rs.run.Points...)
	return out
}

func (rs *runState) terminal() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.run.State.Terminal()
}

// requestCancel sets the cooperative flag and interrupts any in-progress
// wait. Returns false if the run is already terminal.
func (rs *runState) requestCancel() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.run.State.Terminal() {
		return false
	}
	rs.cancelRequested = true
	if rs.cancel != nil {
		rs.cancel()
	}
	return true
}

func (rs *runState) cancelled() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.cancelRequested
}

// RunRegistry holds in-flight and terminal runs. Terminal runs stay
// queryable until purged; when maxTerminal > 0 the oldest terminal runs
// are evicted to stay under the cap.
type RunRegistry struct {
	mu          sync.RWMutex
	runs        map[string]*runState
	maxTerminal int
}

// NewRunRegistry creates a run registry. maxTerminal caps retained
// terminal runs, 0 means unlimited.
func NewRunRegistry(maxTerminal int) *RunRegistry {
	return &RunRegistry{
		runs:        make(map[string]*runState),
		maxTerminal: maxTerminal,
	}
}

func (r *RunRegistry) add(rs *runState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[rs.run.ID] = rs
}

func (r *RunRegistry) get(id string) (*runState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rs, ok := r.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return rs, nil
}

// Snapshot returns a copy of the run, or ErrRunNotFound.
func (r *RunRegistry) Snapshot(id string) (Run, error) {
	rs, err := r.get(id)
	if err != nil {
		return Run{}, err
	}
	return rs.snapshot(), nil
}

// List returns snapshots of every run, newest first.
func (r *RunRegistry) List() []Run {
	r.mu.RLock()
	states := make([]*runState, 0, len(r.runs))
	for _, rs := range r.runs {
		states = append(states, rs)
	}
	r.mu.RUnlock()

	runs := make([]Run, 0, len(states))
	for _, rs := range states {
		runs = append(runs, rs.snapshot())
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs
}

// Purge removes a terminal run from the registry. Purging an in-flight run
// is refused with ErrRunActive.
func (r *RunRegistry) Purge(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ok := r.runs[id]
	if !ok {
		return ErrRunNotFound
	}
	if !rs.terminal() {
		return ErrRunActive
	}
	delete(r.runs, id)
	return nil
}

// Count returns the number of registered runs.
func (r *RunRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}

// pruneTerminal evicts the oldest terminal runs beyond the cap. Called
// after a run reaches a terminal state.
func (r *RunRegistry) pruneTerminal() {
	if r.maxTerminal <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var terminal []Run
	for _, rs := range r.runs {
		snap := rs.snapshot()
		if snap.State.Terminal() {
			terminal = append(terminal, snap)
		}
	}
	if len(terminal) <= r.maxTerminal {
		return
	}

	// Oldest completion first.
	sort.Slice(terminal, func(i, j int) bool {
		ti, tj := terminal[i].CompletedAt, terminal[j].CompletedAt
		switch {
		case ti == nil:
			return true
		case tj == nil:
			return false
		default:
			return ti.Before(*tj)
		}
	})
	for _, run := range terminal[:len(terminal)-r.maxTerminal] {
		delete(r.runs, run.ID)
	}
}
