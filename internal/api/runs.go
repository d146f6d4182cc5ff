package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openmda/mda-core/internal/engine"
	"github.com/openmda/mda-core/internal/measurement"
)

// handleListRuns returns snapshots of all runs, newest first. Data points
// are omitted from the list view; fetch a single run for its points.
func (s *Server) handleListRuns(w http.ResponseWriter, _ *http.Request) {
	runs := s.engine.List()
	summaries := make([]engine.Run, 0, len(runs))
	for _, run := range runs {
		run.Points = nil
		summaries = append(summaries, run)
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": summaries, "count": len(summaries)})
}

// handleStartRun validates a measurement configuration and schedules it.
//
// The run executes detached from this request: the response carries the
// run ID immediately and the caller observes progress via GET /runs/{id}
// or the MQTT run topics. Validation failures (unknown device, waypoint
// outside limits, disconnected device) reject the request before any
// hardware is commanded.
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var cfg measurement.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	m, err := measurement.Build(s.registry, cfg)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	runID, err := s.engine.Start(m)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	run, err := s.engine.Snapshot(runID)
	if err != nil {
		writeInternalError(w, "run vanished after start")
		return
	}
	run.Points = nil

	writeJSON(w, http.StatusAccepted, run)
}

// handleGetRun returns a run snapshot including all accumulated data points.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.engine.Snapshot(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// handleCancelRun requests cooperative cancellation. The in-flight step
// completes as a whole; cancelling a terminal run is a no-op success.
func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.engine.Cancel(id); err != nil {
		writeDomainError(w, err)
		return
	}

	run, err := s.engine.Snapshot(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	run.Points = nil

	writeJSON(w, http.StatusAccepted, run)
}

// handlePurgeRun removes a terminal run from the registry. Active runs
// are refused; cancel first.
func (s *Server) handlePurgeRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.engine.Purge(id); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}
