package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openmda/mda-core/internal/infrastructure/mqtt"
	"github.com/openmda/mda-core/internal/measurement"
)

// Logger defines the logging interface used by the Engine.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MQTTClient is the interface for publishing run events to the bus.
type MQTTClient interface {
	// Publish sends a message to the specified MQTT topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Sink receives completed DataPoints for telemetry export. Implementations
// must not block; writes are fire-and-forget from the run loop.
type Sink interface {
	WriteDataPoint(runID string, dp measurement.DataPoint)
}

// Repository archives terminal runs. Writes are best effort: failures are
// logged, never surfaced to the run. Reads back the archive for runs no
// longer held in memory (evicted by the history cap or lost to a restart).
type Repository interface {
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	DeleteRun(ctx context.Context, runID string) error
}

// persistTimeout bounds the terminal-run write so a stalled database
// cannot pin a finished run goroutine.
const persistTimeout = 5 * time.Second

// repoTimeout bounds archive lookups and deletes issued from control calls.
const repoTimeout = 5 * time.Second

// deviceLocks hands out one mutex per device ID.
type deviceLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newDeviceLocks() *deviceLocks {
	return &deviceLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks every device in sorted ID order and returns the release
// function. Sorted acquisition across all runs rules out lock-order
// deadlock.
func (l *deviceLocks) acquire(ids []string) func() {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	held := make([]*sync.Mutex, 0, len(sorted))
	for _, id := range sorted {
		l.mu.Lock()
		m, ok := l.locks[id]
		if !ok {
			m = &sync.Mutex{}
			l.locks[id] = m
		}
		l.mu.Unlock()

		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

// Engine schedules and supervises measurement runs.
//
// Thread Safety: all public methods are safe for concurrent use.
type Engine struct {
	registry *RunRegistry
	locks    *deviceLocks
	mqtt     MQTTClient // may be nil
	sink     Sink       // may be nil
	repo     Repository // may be nil
	logger   Logger

	rootCtx    context.Context
	rootCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewEngine creates a run engine.
//
// Parameters:
//   - registry: run registry holding in-flight and terminal runs
//   - mqtt: MQTT client for run events (may be nil)
//   - sink: telemetry sink for DataPoints (may be nil)
//   - repo: repository for terminal-run persistence (may be nil)
//   - logger: Logger instance
func NewEngine(registry *RunRegistry, mqtt MQTTClient, sink Sink, repo Repository, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	rootCtx, rootCancel := context.WithCancel(context.Background())
	return &Engine{
		registry:   registry,
		locks:      newDeviceLocks(),
		mqtt:       mqtt,
		sink:       sink,
		repo:       repo,
		logger:     logger,
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
	}
}

// Start registers m as a Pending run and schedules it on a goroutine
// detached from the caller. It returns the run ID immediately; progress is
// observed through Snapshot and List.
func (e *Engine) Start(m measurement.Measurement) (string, error) {
	devs := m.Devices()
	ids := make([]string, 0, len(devs))
	for _, d := range devs {
		ids = append(ids, d.ID())
	}

	rs := &runState{
		run: Run{
			ID:         uuid.NewString(),
			Kind:       m.Kind(),
			State:      StatePending,
			TotalSteps: m.TotalSteps(),
			Devices:    ids,
			CreatedAt:  time.Now().UTC(),
		},
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return "", ErrEngineClosed
	}
	e.registry.add(rs)
	e.wg.Add(1)
	e.mu.Unlock()

	e.logger.Info("run accepted",
		"run_id", rs.run.ID,
		"kind", rs.run.Kind,
		"total_steps", rs.run.TotalSteps,
		"devices", ids,
	)
	e.publishState(rs.snapshot())

	go e.execute(rs, m)
	return rs.run.ID, nil
}

// Cancel requests cooperative cancellation of a run. The flag is observed
// at the next step boundary; the in-flight step completes as a whole.
// Cancelling a run already in a terminal state is a no-op success. Returns
// ErrRunNotFound for unknown IDs.
func (e *Engine) Cancel(runID string) error {
	rs, err := e.registry.get(runID)
	if err != nil {
		return err
	}
	if rs.requestCancel() {
		e.logger.Info("run cancellation requested", "run_id", runID)
	}
	return nil
}

// Snapshot returns a copy of the run's current state, including all
// DataPoints accumulated so far. Never blocks on run execution. Runs no
// longer in memory are served from the archive when a repository is
// configured.
func (e *Engine) Snapshot(runID string) (Run, error) {
	run, err := e.registry.Snapshot(runID)
	if err == nil || e.repo == nil || !errors.Is(err, ErrRunNotFound) {
		return run, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()

	archived, repoErr := e.repo.GetRun(ctx, runID)
	if repoErr != nil {
		if errors.Is(repoErr, ErrRunNotFound) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, repoErr
	}
	return *archived, nil
}

// List returns snapshots of all runs, newest first.
func (e *Engine) List() []Run {
	return e.registry.List()
}

// Purge removes a terminal run from the registry and the archive. Refuses
// in-flight runs with ErrRunActive.
func (e *Engine) Purge(runID string) error {
	memErr := e.registry.Purge(runID)
	if errors.Is(memErr, ErrRunActive) {
		return memErr
	}
	if e.repo == nil {
		return memErr
	}

	ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()

	repoErr := e.repo.DeleteRun(ctx, runID)
	switch {
	case repoErr == nil:
		return nil
	case errors.Is(repoErr, ErrRunNotFound):
		return memErr
	case memErr == nil:
		// Gone from memory but the archived copy would not delete.
		e.logger.Warn("failed to delete archived run", "run_id", runID, "error", repoErr)
		return nil
	default:
		return repoErr
	}
}

// Close stops accepting new runs, cancels in-flight runs cooperatively and
// waits for their goroutines to finish.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.rootCancel()
	e.wg.Wait()
	e.logger.Info("engine closed")
}

// execute is the run goroutine: acquire devices, drive the cursor, finish.
func (e *Engine) execute(rs *runState, m measurement.Measurement) {
	defer e.wg.Done()

	runCtx, cancel := context.WithCancel(e.rootCtx)
	defer cancel()

	rs.mu.Lock()
	rs.cancel = cancel
	runID := rs.run.ID
	devices := append([]string(nil), rs.run.Devices...)
	rs.mu.Unlock()

	release := e.locks.acquire(devices)
	defer release()

	// Cancelled while Pending or waiting for devices.
	if rs.cancelled() || runCtx.Err() != nil {
		e.finish(rs, StateCancelled, nil)
		return
	}

	started := time.Now().UTC()
	rs.mu.Lock()
	rs.run.State = StateRunning
	rs.run.StartedAt = &started
	rs.mu.Unlock()

	e.logger.Info("run started", "run_id", runID, "kind", m.Kind())
	e.publishState(rs.snapshot())

	for {
		if rs.cancelled() || runCtx.Err() != nil {
			e.finish(rs, StateCancelled, nil)
			return
		}

		dp, ok, err := m.Next(runCtx)
		if err != nil {
			// A context error means the wait was interrupted by
			// Cancel or Close, not a hardware fault.
			if rs.cancelled() || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				e.finish(rs, StateCancelled, nil)
				return
			}
			e.finish(rs, StateFailed, err)
			return
		}
		if !ok {
			e.finish(rs, StateCompleted, nil)
			return
		}

		rs.mu.Lock()
		rs.run.Points = append(rs.run.Points, dp)
		total := rs.run.TotalSteps
		rs.mu.Unlock()

		e.publishProgress(runID, dp.Index, total)
		if e.sink != nil {
			e.sink.WriteDataPoint(runID, dp)
		}
	}
}

// finish moves the run to a terminal state, emits events and persists it.
func (e *Engine) finish(rs *runState, state State, stepErr error) {
	completed := time.Now().UTC()

	rs.mu.Lock()
	rs.run.State = state
	rs.run.CompletedAt = &completed
	if stepErr != nil {
		rs.run.Error = stepErr.Error()
		rs.run.FailureKind = classifyFailure(stepErr)
	}
	snap := rs.run
	snap.Devices = append([]string(nil), rs.run.Devices...)
	snap.Points = append([]measurement.DataPoint(nil), rs.run.Points...)
	rs.mu.Unlock()

	switch state {
	case StateFailed:
		e.logger.Error("run failed",
			"run_id", snap.ID,
			"failure_kind", snap.FailureKind,
			"points", len(snap.Points),
			"error", stepErr,
		)
	default:
		e.logger.Info("run finished",
			"run_id", snap.ID,
			"state", state,
			"points", len(snap.Points),
		)
	}

	e.publishState(snap)
	e.persist(snap)
	e.registry.pruneTerminal()
}

// persist writes a terminal run to the repository, best effort.
func (e *Engine) persist(run Run) {
	if e.repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := e.repo.SaveRun(ctx, run); err != nil {
		e.logger.Error("failed to persist run", "run_id", run.ID, "error", err)
	}
}

// publishState emits the run's state transition on the bus.
func (e *Engine) publishState(run Run) {
	if e.mqtt == nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"run_id":      run.ID,
		"kind":        run.Kind,
		"state":       run.State,
		"total_steps": run.TotalSteps,
		"points":      len(run.Points),
		"error":       run.Error,
	})
	if err != nil {
		return
	}

	topic := mqtt.Topics{}.RunState(run.ID)
	if err := e.mqtt.Publish(topic, payload, 1, false); err != nil {
		e.logger.Warn("failed to publish run state", "run_id", run.ID, "error", err)
	}
}

// publishProgress emits a per-step progress event on the bus.
func (e *Engine) publishProgress(runID string, step, total int) {
	if e.mqtt == nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"run_id": runID,
		"step":   step,
		"total":  total,
	})
	if err != nil {
		return
	}

	topic := mqtt.Topics{}.RunProgress(runID)
	if err := e.mqtt.Publish(topic, payload, 0, false); err != nil {
		e.logger.Debug("failed to publish run progress", "run_id", runID, "error", err)
	}
}
