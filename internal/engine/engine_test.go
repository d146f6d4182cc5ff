package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/openmda/mda-core/internal/capability"
	"github.com/openmda/mda-core/internal/device"
	"github.com/openmda/mda-core/internal/measurement"
)

// ─── Mock Dependencies ──────────────────────────────────────────────────────

type fakeDevice struct {
	id string
}

func (d *fakeDevice) ID() string                              { return d.id }
func (d *fakeDevice) Info() device.Info                       { return device.Info{ID: d.id} }
func (d *fakeDevice) Connect(_ context.Context) error         { return nil }
func (d *fakeDevice) Disconnect(_ context.Context) error      { return nil }
func (d *fakeDevice) IsConnected() bool                       { return true }
func (d *fakeDevice) Detectors() map[int]capability.Detector  { return nil }
func (d *fakeDevice) Actuators() map[int]capability.Actuator  { return nil }

// fakeMeasurement is a scripted cursor. When gate is non-nil every step
// blocks until the gate receives (or ctx is cancelled); errAt makes step
// errAt (1-based) fail; onStep runs inside each step.
type fakeMeasurement struct {
	kind    measurement.Kind
	total   int
	devices []device.Device

	gate   chan struct{}
	errAt  int
	onStep func()

	step int
}

func (m *fakeMeasurement) Kind() measurement.Kind {
	if m.kind == "" {
		return measurement.KindTimeSeries
	}
	return m.kind
}

func (m *fakeMeasurement) TotalSteps() int           { return m.total }
func (m *fakeMeasurement) Devices() []device.Device  { return m.devices }

func (m *fakeMeasurement) Next(ctx context.Context) (measurement.DataPoint, bool, error) {
	if m.total > 0 && m.step >= m.total {
		return measurement.DataPoint{}, false, nil
	}
	if m.gate != nil {
		select {
		case <-ctx.Done():
			return measurement.DataPoint{}, false, ctx.Err()
		case <-m.gate:
		}
	}
	if m.errAt > 0 && m.step+1 == m.errAt {
		return measurement.DataPoint{}, false, fmt.Errorf("%w: detector dropout", capability.ErrHardware)
	}
	if m.onStep != nil {
		m.onStep()
	}
	dp := measurement.DataPoint{Index: m.step, Timestamp: time.Now()}
	m.step++
	return dp, true, nil
}

type fakeMQTT struct {
	mu     sync.Mutex
	topics []string
}

func (f *fakeMQTT) Publish(topic string, _ []byte, _ byte, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return nil
}

func (f *fakeMQTT) published(topic string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.topics {
		if t == topic {
			return true
		}
	}
	return false
}

type fakeSink struct {
	mu     sync.Mutex
	points int
}

func (f *fakeSink) WriteDataPoint(_ string, _ measurement.DataPoint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points++
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.points
}

type fakeRepo struct {
	mu    sync.Mutex
	saved []Run
	runs  map[string]Run
}

func (f *fakeRepo) SaveRun(_ context.Context, run Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runs == nil {
		f.runs = make(map[string]Run)
	}
	f.saved = append(f.saved, run)
	f.runs[run.ID] = run
	return nil
}

func (f *fakeRepo) GetRun(_ context.Context, runID string) (*Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	out := run
	return &out, nil
}

func (f *fakeRepo) DeleteRun(_ context.Context, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.runs[runID]; !ok {
		return ErrRunNotFound
	}
	delete(f.runs, runID)
	return nil
}

func (f *fakeRepo) has(runID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.runs[runID]
	return ok
}

func (f *fakeRepo) last() (Run, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saved) == 0 {
		return Run{}, false
	}
	return f.saved[len(f.saved)-1], true
}

// waitForState polls until the run reaches want or the deadline expires.
func waitForState(t *testing.T, e *Engine, runID string, want State) Run {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		run, err := e.Snapshot(runID)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if run.State == want {
			return run
		}
		time.Sleep(time.Millisecond)
	}
	run, _ := e.Snapshot(runID)
	t.Fatalf("run %s never reached %s, stuck at %s", runID, want, run.State)
	return Run{}
}

func newTestEngine(t *testing.T) (*Engine, *fakeMQTT, *fakeSink, *fakeRepo) {
	t.Helper()

	mqtt := &fakeMQTT{}
	sink := &fakeSink{}
	repo := &fakeRepo{}
	e := NewEngine(NewRunRegistry(0), mqtt, sink, repo, nil)
	t.Cleanup(e.Close)
	return e, mqtt, sink, repo
}

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestEngine_RunToCompletion(t *testing.T) {
	e, mqtt, sink, repo := newTestEngine(t)

	m := &fakeMeasurement{total: 3, devices: []device.Device{&fakeDevice{id: "dev-a"}}}
	runID, err := e.Start(m)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	run := waitForState(t, e, runID, StateCompleted)
	if len(run.Points) != 3 {
		t.Errorf("got %d points, want 3", len(run.Points))
	}
	if run.StartedAt == nil || run.CompletedAt == nil {
		t.Error("terminal run must carry StartedAt and CompletedAt")
	}
	if sink.count() != 3 {
		t.Errorf("sink received %d points, want 3", sink.count())
	}

	if !mqtt.published("mdacore/core/run/" + runID + "/state") {
		t.Error("state events were not published")
	}
	if !mqtt.published("mdacore/core/run/" + runID + "/progress") {
		t.Error("progress events were not published")
	}

	saved, ok := repo.last()
	if !ok {
		t.Fatal("terminal run was not persisted")
	}
	if saved.ID != runID || saved.State != StateCompleted {
		t.Errorf("persisted (%s, %s), want (%s, completed)", saved.ID, saved.State, runID)
	}
}

func TestEngine_StartReturnsImmediately(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	gate := make(chan struct{})
	m := &fakeMeasurement{total: 1, gate: gate, devices: []device.Device{&fakeDevice{id: "dev-a"}}}

	done := make(chan struct{})
	var runID string
	go func() {
		defer close(done)
		id, err := e.Start(m)
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
		runID = id
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start() blocked on run execution")
	}

	waitForState(t, e, runID, StateRunning)
	close(gate)
	waitForState(t, e, runID, StateCompleted)
}

func TestEngine_CancelMidRun(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	gate := make(chan struct{})
	m := &fakeMeasurement{total: 5, gate: gate, devices: []device.Device{&fakeDevice{id: "dev-a"}}}
	runID, err := e.Start(m)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Let exactly two steps through.
	gate <- struct{}{}
	gate <- struct{}{}
	waitFor(t, func() bool {
		run, _ := e.Snapshot(runID)
		return len(run.Points) == 2
	})

	if err := e.Cancel(runID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	run := waitForState(t, e, runID, StateCancelled)
	if len(run.Points) != 2 {
		t.Errorf("got %d points, want the 2 completed before cancellation", len(run.Points))
	}

	// Cancelling a terminal run is a no-op success.
	if err := e.Cancel(runID); err != nil {
		t.Errorf("Cancel() on terminal run = %v, want nil", err)
	}
}

func TestEngine_CancelUnknownRun(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	if err := e.Cancel("ghost"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Cancel() = %v, want ErrRunNotFound", err)
	}
}

func TestEngine_StepFailureIsIsolated(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	bad := &fakeMeasurement{total: 5, errAt: 3, devices: []device.Device{&fakeDevice{id: "dev-a"}}}
	badID, err := e.Start(bad)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	run := waitForState(t, e, badID, StateFailed)
	if run.FailureKind != FailureHardware {
		t.Errorf("FailureKind = %q, want hardware", run.FailureKind)
	}
	if run.Error == "" {
		t.Error("failed run must carry the step error")
	}
	if len(run.Points) != 2 {
		t.Errorf("got %d points, want the 2 completed before the fault", len(run.Points))
	}

	// The engine keeps accepting and completing runs after a failure.
	good := &fakeMeasurement{total: 2, devices: []device.Device{&fakeDevice{id: "dev-a"}}}
	goodID, err := e.Start(good)
	if err != nil {
		t.Fatalf("Start() after failure error = %v", err)
	}
	waitForState(t, e, goodID, StateCompleted)
}

func TestEngine_SameDeviceRunsSerialize(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	gate := make(chan struct{})
	first := &fakeMeasurement{total: 1, gate: gate, devices: []device.Device{&fakeDevice{id: "shared"}}}
	firstID, err := e.Start(first)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForState(t, e, firstID, StateRunning)

	second := &fakeMeasurement{total: 1, devices: []device.Device{&fakeDevice{id: "shared"}}}
	secondID, err := e.Start(second)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// The second run must queue behind the first on the shared device.
	time.Sleep(20 * time.Millisecond)
	run, _ := e.Snapshot(secondID)
	if run.State != StatePending {
		t.Fatalf("second run state = %s, want pending while device is held", run.State)
	}

	close(gate)
	waitForState(t, e, firstID, StateCompleted)
	waitForState(t, e, secondID, StateCompleted)
}

func TestEngine_DisjointDevicesRunConcurrently(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	gateA := make(chan struct{})
	gateB := make(chan struct{})
	a := &fakeMeasurement{total: 1, gate: gateA, devices: []device.Device{&fakeDevice{id: "dev-a"}}}
	b := &fakeMeasurement{total: 1, gate: gateB, devices: []device.Device{&fakeDevice{id: "dev-b"}}}

	aID, err := e.Start(a)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	bID, err := e.Start(b)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Both enter Running while both gates are still held shut.
	waitForState(t, e, aID, StateRunning)
	waitForState(t, e, bID, StateRunning)

	close(gateA)
	close(gateB)
	waitForState(t, e, aID, StateCompleted)
	waitForState(t, e, bID, StateCompleted)
}

func TestEngine_PurgeRefusesActiveRun(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	gate := make(chan struct{})
	m := &fakeMeasurement{total: 1, gate: gate, devices: []device.Device{&fakeDevice{id: "dev-a"}}}
	runID, err := e.Start(m)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForState(t, e, runID, StateRunning)

	if err := e.Purge(runID); !errors.Is(err, ErrRunActive) {
		t.Errorf("Purge() on running run = %v, want ErrRunActive", err)
	}

	close(gate)
	waitForState(t, e, runID, StateCompleted)

	if err := e.Purge(runID); err != nil {
		t.Errorf("Purge() on terminal run error = %v", err)
	}
	if _, err := e.Snapshot(runID); !errors.Is(err, ErrRunNotFound) {
		t.Error("purged run should be gone from the registry")
	}

	if err := e.Purge(runID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Purge() twice = %v, want ErrRunNotFound", err)
	}
}

func TestEngine_SnapshotServesEvictedRunFromArchive(t *testing.T) {
	repo := &fakeRepo{}
	e := NewEngine(NewRunRegistry(1), nil, nil, repo, nil)
	t.Cleanup(e.Close)

	m := &fakeMeasurement{total: 2, devices: []device.Device{&fakeDevice{id: "dev-a"}}}
	oldID, err := e.Start(m)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForState(t, e, oldID, StateCompleted)

	// A second terminal run evicts the first from the registry.
	next := &fakeMeasurement{total: 1, devices: []device.Device{&fakeDevice{id: "dev-a"}}}
	nextID, err := e.Start(next)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForState(t, e, nextID, StateCompleted)

	if got := len(e.List()); got != 1 {
		t.Fatalf("registry holds %d runs, want 1 after eviction", got)
	}

	run, err := e.Snapshot(oldID)
	if err != nil {
		t.Fatalf("Snapshot() of evicted run error = %v", err)
	}
	if run.ID != oldID || run.State != StateCompleted {
		t.Errorf("archived snapshot = (%s, %s), want (%s, completed)", run.ID, run.State, oldID)
	}
	if len(run.Points) != 2 {
		t.Errorf("archived snapshot carries %d points, want 2", len(run.Points))
	}

	if _, err := e.Snapshot("ghost"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Snapshot() of unknown run = %v, want ErrRunNotFound", err)
	}
}

func TestEngine_PurgeRemovesArchivedRun(t *testing.T) {
	e, _, _, repo := newTestEngine(t)

	m := &fakeMeasurement{total: 1, devices: []device.Device{&fakeDevice{id: "dev-a"}}}
	runID, err := e.Start(m)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForState(t, e, runID, StateCompleted)

	if !repo.has(runID) {
		t.Fatal("terminal run was not archived")
	}

	if err := e.Purge(runID); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if repo.has(runID) {
		t.Error("archived copy survived the purge")
	}
	if _, err := e.Snapshot(runID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Snapshot() after purge = %v, want ErrRunNotFound", err)
	}
}

func TestEngine_CloseCancelsInFlightRuns(t *testing.T) {
	mqtt := &fakeMQTT{}
	e := NewEngine(NewRunRegistry(0), mqtt, nil, nil, nil)

	gate := make(chan struct{})
	m := &fakeMeasurement{total: 0, gate: gate, devices: []device.Device{&fakeDevice{id: "dev-a"}}}
	runID, err := e.Start(m)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForState(t, e, runID, StateRunning)

	e.Close()

	run, err := e.Snapshot(runID)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if run.State != StateCancelled {
		t.Errorf("run state after Close = %s, want cancelled", run.State)
	}

	if _, err := e.Start(&fakeMeasurement{total: 1}); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("Start() after Close = %v, want ErrEngineClosed", err)
	}
}

func TestEngine_SnapshotIsACopy(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	m := &fakeMeasurement{total: 2, devices: []device.Device{&fakeDevice{id: "dev-a"}}}
	runID, err := e.Start(m)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForState(t, e, runID, StateCompleted)

	snap, _ := e.Snapshot(runID)
	snap.Points[0].Index = 99
	snap.Devices[0] = "tampered"

	again, _ := e.Snapshot(runID)
	if again.Points[0].Index == 99 || again.Devices[0] == "tampered" {
		t.Error("mutating a snapshot leaked into the engine's record")
	}
}

func TestRunRegistry_TerminalCapEvictsOldest(t *testing.T) {
	e := NewEngine(NewRunRegistry(2), nil, nil, nil, nil)
	t.Cleanup(e.Close)

	var ids []string
	for i := 0; i < 4; i++ {
		m := &fakeMeasurement{total: 1, devices: []device.Device{&fakeDevice{id: "dev-a"}}}
		id, err := e.Start(m)
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		waitForState(t, e, id, StateCompleted)
		ids = append(ids, id)
	}

	if got := len(e.List()); got != 2 {
		t.Fatalf("registry holds %d runs, want 2 after eviction", got)
	}
	for _, id := range ids[:2] {
		if _, err := e.Snapshot(id); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("oldest run %s should have been evicted", id)
		}
	}
}

func TestState_Terminal(t *testing.T) {
	cases := map[State]bool{
		StatePending:   false,
		StateRunning:   false,
		StateCompleted: true,
		StateFailed:    true,
		StateCancelled: true,
	}
	for state, want := range cases {
		if got := state.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", state, got, want)
		}
	}
}

// waitFor polls cond until true or the deadline expires.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}
