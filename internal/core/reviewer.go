package core

import "context"

// Reviewer is the narrow capability interface every external analyzer is
// plugged in through. Implementations must honor ctx cancellation: the
// orchestrator enforces per-reviewer deadlines through the context it passes.
type Reviewer interface {
	// ID returns the stable reviewer identifier used for weighting and
	// attribution.
	ID() string

	// Review analyzes the payload and returns the reviewer's findings.
	// The payload is shared read-only across concurrent invocations.
	Review(ctx context.Context, payload ReviewPayload) (*IssueSet, error)
}

// ReviewerFunc adapts a plain function to the Reviewer interface.
type ReviewerFunc struct {
	ReviewerID string
	Fn         func(ctx context.Context, payload ReviewPayload) (*IssueSet, error)
}

func (r ReviewerFunc) ID() string { return r.ReviewerID }

func (r ReviewerFunc) Review(ctx context.Context, payload ReviewPayload) (*IssueSet, error) {
	return r.Fn(ctx, payload)
}

// ReviewerFailure records which reviewer failed and why.
type ReviewerFailure struct {
	ReviewerID string `json:"reviewer_id"`
	Reason     string `json:"reason"`
}

// PartialResultSet is the orchestrator's output: whichever reviewers
// completed, plus those that timed out or errored. A non-empty TimedOut or
// Failed list degrades the eventual report to PARTIAL, it never aborts it.
type PartialResultSet struct {
	Completed []IssueSet        `json:"completed"`
	TimedOut  []string          `json:"timed_out"`
	Failed    []ReviewerFailure `json:"failed"`
}

// Total returns the number of reviewers the run was fanned out to.
func (p *PartialResultSet) Total() int {
	return len(p.Completed) + len(p.TimedOut) + len(p.Failed)
}

// Missing returns the IDs of reviewers that did not complete, sorted input
// order preserved from the TimedOut and Failed lists.
func (p *PartialResultSet) Missing() []string {
	out := make([]string, 0, len(p.TimedOut)+len(p.Failed))
	out = append(out, p.TimedOut...)
	for _, f := range p.Failed {
		out = append(out, f.ReviewerID)
	}
	return out
}
