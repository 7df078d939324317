// Package handler provides HTTP handlers for the consolidation API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/code-quorum/internal/core"
	"github.com/sevigo/code-quorum/internal/engine"
	"github.com/sevigo/code-quorum/internal/reviewer"
	"github.com/sevigo/code-quorum/internal/storage"
)

// ConsolidateHandler serves consolidation runs and cycle lookups.
type ConsolidateHandler struct {
	dispatcher core.JobDispatcher
	engine     *engine.Engine
	registry   *reviewer.Registry
	store      storage.CycleStore
	logger     *slog.Logger
}

// NewConsolidateHandler creates a handler backed by the given components.
func NewConsolidateHandler(dispatcher core.JobDispatcher, eng *engine.Engine, reg *reviewer.Registry, store storage.CycleStore, logger *slog.Logger) *ConsolidateHandler {
	return &ConsolidateHandler{
		dispatcher: dispatcher,
		engine:     eng,
		registry:   reg,
		store:      store,
		logger:     logger,
	}
}

// Submit queues an asynchronous consolidation run.
func (h *ConsolidateHandler) Submit(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	if err := h.dispatcher.Dispatch(r.Context(), req); err != nil {
		h.logger.Error("failed to dispatch consolidation job", "error", err, "cycle", req.CycleID)
		http.Error(w, "Failed to queue consolidation run", http.StatusServiceUnavailable)
		return
	}

	h.logger.Info("consolidation job dispatched", "cycle", req.CycleID, "iteration", req.Iteration)
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]any{
		"cycle_id":  req.CycleID,
		"iteration": req.Iteration,
		"queued":    true,
	})
}

// runResponse is the synchronous endpoint's body.
type runResponse struct {
	Report   *core.ConsolidatedReport `json:"report"`
	Decision *core.CycleDecision      `json:"decision,omitempty"`
}

// SubmitSync runs a consolidation inline and returns the report.
func (h *ConsolidateHandler) SubmitSync(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	report, decision, err := h.engine.RunCycle(r.Context(), req.CycleID, req.Iteration, h.registry.All(), req.Payload)
	switch {
	case errors.Is(err, core.ErrAllReviewersFailed):
		http.Error(w, "No reviewer could be consulted", http.StatusBadGateway)
		return
	case errors.Is(err, core.ErrInvalidCycleSequence):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		h.logger.Error("consolidation run failed", "error", err, "cycle", req.CycleID)
		http.Error(w, "Consolidation run failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, runResponse{Report: report, Decision: decision})
}

// cycleResponse describes a cycle's current state.
type cycleResponse struct {
	CycleID string            `json:"cycle_id"`
	State   core.CycleState   `json:"state"`
	Latest  *core.CycleRecord `json:"latest,omitempty"`
}

// GetCycle returns the tracked state of one cycle.
func (h *ConsolidateHandler) GetCycle(w http.ResponseWriter, r *http.Request) {
	cycleID := chi.URLParam(r, "cycleID")

	state, err := h.store.State(r.Context(), cycleID)
	if err != nil {
		h.logger.Error("failed to load cycle state", "error", err, "cycle", cycleID)
		http.Error(w, "Failed to load cycle", http.StatusInternalServerError)
		return
	}

	latest, err := h.store.Latest(r.Context(), cycleID)
	if err != nil {
		h.logger.Error("failed to load cycle record", "error", err, "cycle", cycleID)
		http.Error(w, "Failed to load cycle", http.StatusInternalServerError)
		return
	}
	if latest == nil {
		http.Error(w, "Cycle not found", http.StatusNotFound)
		return
	}

	writeJSON(w, cycleResponse{CycleID: cycleID, State: state, Latest: latest})
}

func (h *ConsolidateHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*core.ReviewRequest, bool) {
	var req core.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	if req.CycleID == "" || req.Iteration < 1 {
		http.Error(w, "cycle_id and a positive iteration are required", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing left to do but note it.
		slog.Default().Error("failed to encode response", "error", err)
	}
}
