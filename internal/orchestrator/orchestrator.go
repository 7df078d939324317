// Package orchestrator fans a review payload out to all configured reviewers
// concurrently and collects whatever subset of them completes.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/code-quorum/internal/core"
)

// outcome is the classified result of one reviewer invocation.
type outcome struct {
	reviewerID string
	set        *core.IssueSet
	timedOut   bool
	err        error
}

// Orchestrator runs reviewer invocations as independent concurrent tasks.
// Each invocation gets its own full timeout budget; one reviewer's slowness
// or failure never truncates or cancels the others.
type Orchestrator struct {
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an Orchestrator with the given per-reviewer timeout.
func New(timeout time.Duration, logger *slog.Logger) *Orchestrator {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Orchestrator{timeout: timeout, logger: logger}
}

// Execute invokes every reviewer concurrently against the shared read-only
// payload. It returns core.ErrAllReviewersFailed if zero reviewers produce a
// usable IssueSet, and core.ErrNoReviewers for an empty reviewer list.
func (o *Orchestrator) Execute(ctx context.Context, reviewers []core.Reviewer, payload core.ReviewPayload) (*core.PartialResultSet, error) {
	if len(reviewers) == 0 {
		return nil, core.ErrNoReviewers
	}

	outcomes := make([]outcome, len(reviewers))
	var g errgroup.Group

	for i, r := range reviewers {
		i, r := i, r
		g.Go(func() error {
			outcomes[i] = o.invoke(ctx, r, payload)
			return nil
		})
	}
	// Workers never return errors; failures are classified per outcome.
	_ = g.Wait()

	result := &core.PartialResultSet{}
	for _, oc := range outcomes {
		switch {
		case oc.timedOut:
			o.logger.Warn("reviewer timed out", "reviewer", oc.reviewerID, "budget", o.timeout)
			result.TimedOut = append(result.TimedOut, oc.reviewerID)
		case oc.err != nil:
			o.logger.Error("reviewer failed", "reviewer", oc.reviewerID, "error", oc.err)
			result.Failed = append(result.Failed, core.ReviewerFailure{
				ReviewerID: oc.reviewerID,
				Reason:     oc.err.Error(),
			})
		default:
			result.Completed = append(result.Completed, *oc.set)
		}
	}

	// Arrival order carries no meaning downstream; sort for stable output.
	sort.Slice(result.Completed, func(a, b int) bool {
		return result.Completed[a].ReviewerID < result.Completed[b].ReviewerID
	})
	sort.Strings(result.TimedOut)
	sort.Slice(result.Failed, func(a, b int) bool {
		return result.Failed[a].ReviewerID < result.Failed[b].ReviewerID
	})

	if len(result.Completed) == 0 {
		return nil, fmt.Errorf("%d reviewers invoked, none completed: %w",
			len(reviewers), core.ErrAllReviewersFailed)
	}
	return result, nil
}

// invoke runs a single reviewer under its own deadline and classifies the
// result. The deadline cancels only this reviewer's context; invoke does not
// block on cancellation acknowledgement beyond the reviewer returning.
func (o *Orchestrator) invoke(ctx context.Context, r core.Reviewer, payload core.ReviewPayload) outcome {
	reviewCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	set, err := r.Review(reviewCtx, payload)
	elapsed := time.Since(start)

	switch {
	case err != nil && errors.Is(err, context.DeadlineExceeded):
		return outcome{reviewerID: r.ID(), timedOut: true}
	case err != nil:
		return outcome{reviewerID: r.ID(), err: err}
	case set == nil:
		return outcome{reviewerID: r.ID(), err: fmt.Errorf("reviewer returned no issue set")}
	}

	o.logger.Info("reviewer completed",
		"reviewer", r.ID(),
		"issues", len(set.Issues),
		"duration", elapsed,
	)

	sanitized := sanitize(r.ID(), set, o.logger)
	return outcome{reviewerID: r.ID(), set: sanitized}
}

// sanitize enforces the ingestion boundary: the reviewer ID is forced onto
// every issue, malformed issues are dropped with a log line, and
// recommendations with out-of-range confidence are discarded. Downstream
// stages are pure and rely on only valid data reaching them.
func sanitize(reviewerID string, set *core.IssueSet, logger *slog.Logger) *core.IssueSet {
	clean := &core.IssueSet{ReviewerID: reviewerID}

	for _, issue := range set.Issues {
		issue.ReviewerID = reviewerID
		if err := issue.Validate(); err != nil {
			logger.Warn("dropping malformed issue",
				"reviewer", reviewerID,
				"file", issue.FilePath,
				"reason", err,
			)
			continue
		}
		clean.Issues = append(clean.Issues, issue)
	}

	for _, rec := range set.Recommendations {
		rec.ReviewerID = reviewerID
		if rec.Text == "" || rec.Confidence < 0 || rec.Confidence > 1 {
			logger.Warn("dropping malformed recommendation", "reviewer", reviewerID)
			continue
		}
		clean.Recommendations = append(clean.Recommendations, rec)
	}
	return clean
}
