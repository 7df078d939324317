// Package cycle tracks review-fix-re-review cycles across sequential
// consolidation runs and decides when automation has stalled.
package cycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sevigo/code-quorum/internal/core"
	"github.com/sevigo/code-quorum/internal/dedup"
	"github.com/sevigo/code-quorum/internal/storage"
)

// Tracker is the per-cycle state machine. Cycles are identified by an opaque
// caller-supplied ID reused verbatim across iterations; the tracker never
// mints its own identifiers.
type Tracker struct {
	store            storage.CycleStore
	maxIterations    int
	simThreshold     float64
	improvementFloor float64
	logger           *slog.Logger
}

// New creates a Tracker bound to the given store. maxIterations caps how many
// consolidation runs a cycle may consume before it must close or escalate.
func New(store storage.CycleStore, maxIterations int, simThreshold, improvementFloor float64, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:            store,
		maxIterations:    maxIterations,
		simThreshold:     simThreshold,
		improvementFloor: improvementFloor,
		logger:           logger,
	}
}

// Observe records the outcome of one consolidation run and returns the cycle
// decision. An iteration that is not exactly one greater than the last
// recorded iteration, or any iteration against a closed/escalated cycle, is
// rejected with core.ErrInvalidCycleSequence before any state is mutated.
func (t *Tracker) Observe(ctx context.Context, rec *core.CycleRecord) (*core.CycleDecision, error) {
	state, err := t.store.State(ctx, rec.CycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cycle state: %w", err)
	}
	if state != core.CycleOpen {
		return nil, fmt.Errorf("cycle %q is already %s: %w",
			rec.CycleID, state, core.ErrInvalidCycleSequence)
	}

	prior, err := t.store.Latest(ctx, rec.CycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load prior cycle record: %w", err)
	}

	expected := 1
	if prior != nil {
		expected = prior.Iteration + 1
	}
	if rec.Iteration != expected {
		return nil, fmt.Errorf("cycle %q expects iteration %d, got %d: %w",
			rec.CycleID, expected, rec.Iteration, core.ErrInvalidCycleSequence)
	}

	if err := t.store.SaveRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save cycle record: %w", err)
	}

	decision := &core.CycleDecision{
		Action:    core.ActionContinue,
		CycleID:   rec.CycleID,
		Iteration: rec.Iteration,
	}

	if prior != nil {
		decision.Diff = t.diff(prior, rec)
	}

	if rec.Iteration < t.maxIterations {
		if prior == nil {
			t.logger.Info("cycle opened", "cycle", rec.CycleID, "issues", rec.TotalIssueCount)
		} else {
			t.logger.Info("cycle continues",
				"cycle", rec.CycleID,
				"iteration", rec.Iteration,
				"fixed", len(decision.Diff.Fixed),
				"new", len(decision.Diff.New),
			)
		}
		return decision, nil
	}

	var action core.CycleAction
	var reason string
	if prior == nil {
		// Single-iteration cycle: no baseline to diff against, but the bound
		// still holds. Everything observed counts as new.
		decision.Diff.New = append(decision.Diff.New, rec.Clusters...)
		action, reason = t.decideFirst(rec)
	} else {
		action, reason = t.decide(prior, decision.Diff)
	}
	decision.Action = action

	finalState := core.CycleClosed
	if action == core.ActionEscalate {
		finalState = core.CycleEscalated
	}
	if err := t.store.SetState(ctx, rec.CycleID, finalState); err != nil {
		return nil, fmt.Errorf("failed to finalize cycle: %w", err)
	}

	t.logger.Info("cycle finished",
		"cycle", rec.CycleID,
		"iteration", rec.Iteration,
		"action", action,
		"reason", reason,
	)
	return decision, nil
}

// decideFirst finalizes a cycle whose first observation is also its last.
// The improvement rules need a prior record, so only the P0 rule applies: a
// P0 with no automated iterations remaining goes to a human.
func (t *Tracker) decideFirst(rec *core.CycleRecord) (core.CycleAction, string) {
	for _, sig := range rec.Clusters {
		if sig.Priority == core.PriorityP0 {
			return core.ActionEscalate, "P0 present with no iterations remaining"
		}
	}
	return core.ActionClose, "single-iteration cycle complete"
}

// decide applies the escalation rules at the final iteration. The tracker
// performs no root-cause inference; it only reports that automated
// convergence failed and hands the diff to a human.
func (t *Tracker) decide(prior *core.CycleRecord, diff core.CycleDiff) (core.CycleAction, string) {
	for _, sig := range diff.Persistent {
		if sig.Priority == core.PriorityP0 {
			return core.ActionEscalate, "persistent P0 at max iteration"
		}
	}

	improvement := float64(len(diff.Fixed)) / float64(max(1, prior.TotalIssueCount))
	if improvement < t.improvementFloor {
		return core.ActionEscalate, fmt.Sprintf("improvement rate %.2f below floor", improvement)
	}

	if len(diff.New) > len(diff.Fixed) {
		return core.ActionEscalate, "net negative progress"
	}
	return core.ActionClose, "converged"
}

// diff matches the prior record's clusters against the current one. Matching
// is by (file, type, description similarity) rather than identity, since
// fixes commonly shift line numbers.
func (t *Tracker) diff(prior, current *core.CycleRecord) core.CycleDiff {
	var d core.CycleDiff

	matchedCurrent := make([]bool, len(current.Clusters))
	for _, p := range prior.Clusters {
		idx := t.match(p, current.Clusters, matchedCurrent)
		if idx < 0 {
			d.Fixed = append(d.Fixed, p)
			continue
		}
		matchedCurrent[idx] = true
		// Report the current signature so persistent entries carry the
		// cluster's present-day priority.
		d.Persistent = append(d.Persistent, current.Clusters[idx])
	}

	for i, c := range current.Clusters {
		if !matchedCurrent[i] {
			d.New = append(d.New, c)
		}
	}
	return d
}

// match finds the first unmatched current cluster equivalent to sig, or -1.
func (t *Tracker) match(sig core.ClusterSignature, candidates []core.ClusterSignature, taken []bool) int {
	for i, c := range candidates {
		if taken[i] || c.FilePath != sig.FilePath || c.IssueType != sig.IssueType {
			continue
		}
		if dedup.Similarity(sig.Description, c.Description) >= t.simThreshold {
			return i
		}
	}
	return -1
}
