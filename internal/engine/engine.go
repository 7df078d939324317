// Package engine runs the full consolidation pipeline: concurrent reviewer
// fan-out, deduplication, aggregation, theme synthesis, and cycle tracking.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/code-quorum/internal/aggregate"
	"github.com/sevigo/code-quorum/internal/core"
	"github.com/sevigo/code-quorum/internal/cycle"
	"github.com/sevigo/code-quorum/internal/dedup"
	"github.com/sevigo/code-quorum/internal/orchestrator"
	"github.com/sevigo/code-quorum/internal/themes"
)

// Engine coordinates one consolidation run end to end. All pipeline stages
// after the orchestrator are pure transformations; no state is shared between
// runs except the tracker's per-cycle records.
type Engine struct {
	orch    *orchestrator.Orchestrator
	dedup   *dedup.Deduplicator
	agg     *aggregate.Aggregator
	themes  *themes.Synthesizer
	tracker *cycle.Tracker
	logger  *slog.Logger
}

// New assembles an Engine from its pipeline stages. tracker may be nil for
// one-off runs that are not part of a review cycle.
func New(orch *orchestrator.Orchestrator, dd *dedup.Deduplicator, agg *aggregate.Aggregator,
	syn *themes.Synthesizer, tracker *cycle.Tracker, logger *slog.Logger) *Engine {
	return &Engine{
		orch:    orch,
		dedup:   dd,
		agg:     agg,
		themes:  syn,
		tracker: tracker,
		logger:  logger,
	}
}

// Consolidate runs reviewers against the payload and produces the
// consolidated report. It returns core.ErrAllReviewersFailed (wrapped) when
// no reviewer could be consulted; that case must never be mistaken for a
// clean "no issues found" report.
func (e *Engine) Consolidate(ctx context.Context, reviewers []core.Reviewer, payload core.ReviewPayload) (*core.ConsolidatedReport, error) {
	results, err := e.orch.Execute(ctx, reviewers, payload)
	if err != nil {
		return nil, err
	}

	var rawIssues []core.Issue
	var recommendations []core.Recommendation
	for _, set := range results.Completed {
		rawIssues = append(rawIssues, set.Issues...)
		recommendations = append(recommendations, set.Recommendations...)
	}

	// Consensus is judged against every reviewer invoked, not just the ones
	// that responded; a missing reviewer cannot be part of a consensus.
	clusters := e.dedup.Cluster(rawIssues)
	issues := e.agg.Consolidate(clusters, results.Total())

	var counts core.PriorityCounts
	for _, issue := range issues {
		switch issue.Priority {
		case core.PriorityP0:
			counts.P0++
		case core.PriorityP1:
			counts.P1++
		case core.PriorityP2:
			counts.P2++
		}
	}

	report := &core.ConsolidatedReport{
		RunID:              uuid.NewString(),
		Status:             status(counts, len(results.Completed), results.Total()),
		PriorityCounts:     counts,
		Issues:             issues,
		Themes:             e.themes.Synthesize(recommendations),
		ReviewersCompleted: len(results.Completed),
		ReviewersTotal:     results.Total(),
		MissingReviewers:   results.Missing(),
		DedupStats:         dedupStats(len(rawIssues), len(issues)),
		CreatedAt:          time.Now().UTC(),
	}

	e.logger.Info("consolidation run complete",
		"run_id", report.RunID,
		"status", report.Status,
		"issues", len(issues),
		"reviewers", fmt.Sprintf("%d/%d", report.ReviewersCompleted, report.ReviewersTotal),
	)
	return report, nil
}

// RunCycle performs a consolidation run that belongs to a review cycle and
// feeds the outcome to the cycle tracker. The cycle ID and iteration are
// caller-supplied.
func (e *Engine) RunCycle(ctx context.Context, cycleID string, iteration int, reviewers []core.Reviewer, payload core.ReviewPayload) (*core.ConsolidatedReport, *core.CycleDecision, error) {
	report, err := e.Consolidate(ctx, reviewers, payload)
	if err != nil {
		return nil, nil, err
	}
	if e.tracker == nil {
		return report, nil, nil
	}

	decision, err := e.tracker.Observe(ctx, Record(cycleID, iteration, report))
	if err != nil {
		return report, nil, fmt.Errorf("cycle tracking failed: %w", err)
	}
	return report, decision, nil
}

// Record builds the persistable cycle observation from a report.
func Record(cycleID string, iteration int, report *core.ConsolidatedReport) *core.CycleRecord {
	sigs := make([]core.ClusterSignature, 0, len(report.Issues))
	for _, issue := range report.Issues {
		desc := ""
		if len(issue.Descriptions) > 0 {
			desc = issue.Descriptions[0]
		}
		sigs = append(sigs, core.ClusterSignature{
			FilePath:    issue.FilePath,
			IssueType:   issue.IssueType,
			Description: desc,
			Priority:    issue.Priority,
		})
	}
	return &core.CycleRecord{
		CycleID:         cycleID,
		Iteration:       iteration,
		Timestamp:       report.CreatedAt,
		TotalIssueCount: len(report.Issues),
		PriorityCounts:  report.PriorityCounts,
		Clusters:        sigs,
	}
}

// status maps priority counts onto the report verdict. PARTIAL takes
// precedence whenever any reviewer is missing so callers never read a
// degraded run as a full one.
func status(counts core.PriorityCounts, completed, total int) core.ReportStatus {
	if completed < total {
		return core.StatusPartial
	}
	switch {
	case counts.P0 > 0:
		return core.StatusRed
	case counts.P1 > 0:
		return core.StatusYellow
	default:
		return core.StatusGreen
	}
}

func dedupStats(raw, final int) core.DedupStats {
	stats := core.DedupStats{RawCount: raw, FinalCount: final, Ratio: 1}
	if raw > 0 {
		stats.Ratio = float64(final) / float64(raw)
	}
	return stats
}
