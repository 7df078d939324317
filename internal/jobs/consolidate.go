package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sevigo/code-quorum/internal/core"
	"github.com/sevigo/code-quorum/internal/engine"
	"github.com/sevigo/code-quorum/internal/reviewer"
)

// ConsolidateJob is a background job that performs one full consolidation run
// for a queued request.
type ConsolidateJob struct {
	engine   *engine.Engine
	registry *reviewer.Registry
	logger   *slog.Logger
}

// NewConsolidateJob creates a new ConsolidateJob.
func NewConsolidateJob(eng *engine.Engine, reg *reviewer.Registry, logger *slog.Logger) core.Job {
	if eng == nil {
		panic("engine cannot be nil")
	}
	if reg == nil {
		panic("registry cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &ConsolidateJob{engine: eng, registry: reg, logger: logger}
}

// Run executes the consolidation run described by the request.
func (j *ConsolidateJob) Run(ctx context.Context, req *core.ReviewRequest) error {
	if err := validateRequest(req); err != nil {
		j.logger.Error("input validation failed", "error", err)
		return fmt.Errorf("input validation failed: %w", err)
	}

	j.logger.Info("starting consolidation job", "cycle", req.CycleID, "iteration", req.Iteration)

	report, decision, err := j.engine.RunCycle(ctx, req.CycleID, req.Iteration, j.registry.All(), req.Payload)
	if err != nil {
		return fmt.Errorf("consolidation run failed: %w", err)
	}

	attrs := []any{
		"cycle", req.CycleID,
		"iteration", req.Iteration,
		"run_id", report.RunID,
		"status", report.Status,
		"issues", len(report.Issues),
	}
	if decision != nil {
		attrs = append(attrs, "action", decision.Action)
		if decision.Action == core.ActionEscalate {
			attrs = append(attrs,
				"fixed", len(decision.Diff.Fixed),
				"new", len(decision.Diff.New),
				"persistent", len(decision.Diff.Persistent),
			)
		}
	}
	j.logger.Info("consolidation job completed", attrs...)
	return nil
}

// validateRequest ensures the request contains all required fields.
func validateRequest(req *core.ReviewRequest) error {
	if req == nil {
		return fmt.Errorf("request cannot be nil")
	}
	if strings.TrimSpace(req.CycleID) == "" {
		return fmt.Errorf("cycle ID cannot be empty")
	}
	if req.Iteration < 1 {
		return fmt.Errorf("iteration must be positive, got: %d", req.Iteration)
	}
	if req.Payload.Diff == "" && len(req.Payload.Files) == 0 {
		return fmt.Errorf("payload must carry a diff or a file list")
	}
	return nil
}
