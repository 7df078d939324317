// Package aggregate resolves each cluster's priority and confidence from the
// signals of its contributing reviewers.
package aggregate

import (
	"math"
	"sort"

	"github.com/sevigo/code-quorum/internal/core"
)

// majorityFloor is the fraction of distinct reviewers that must report P1
// for the cluster to resolve to P1. A 50/50 split rounds up to P1.
const majorityFloor = 0.5

// ResolvePriority applies the priority rules to a cluster's raw issues,
// evaluated in order:
//
//  1. Any contributor reported P0 -> P0. A single reviewer can veto; critical
//     issues are never overridden by consensus.
//  2. P1 contributors / distinct reviewers >= 0.5 -> P1.
//  3. Otherwise P2.
//
// Distinct reviewers are counted by ID, not raw issue count, so one reviewer
// reporting duplicate views of the same problem does not skew the majority.
func ResolvePriority(issues []core.Issue) core.Priority {
	if len(issues) == 0 {
		return core.PriorityP2
	}

	p1Reviewers := make(map[string]struct{})
	allReviewers := make(map[string]struct{})
	for _, i := range issues {
		allReviewers[i.ReviewerID] = struct{}{}
		switch i.Priority {
		case core.PriorityP0:
			return core.PriorityP0
		case core.PriorityP1:
			p1Reviewers[i.ReviewerID] = struct{}{}
		}
	}

	if float64(len(p1Reviewers))/float64(len(allReviewers)) >= majorityFloor {
		return core.PriorityP1
	}
	return core.PriorityP2
}

// WeightedConfidence computes the weight-adjusted mean confidence of the
// issues. Reviewers without an entry in weights carry weight 1.0. The result
// keeps full precision; rounding happens only at the reporting boundary.
func WeightedConfidence(issues []core.Issue, weights map[string]float64) float64 {
	if len(issues) == 0 {
		return 0
	}
	var sum, totalWeight float64
	for _, i := range issues {
		w := 1.0
		if ww, ok := weights[i.ReviewerID]; ok {
			w = ww
		}
		sum += i.Confidence * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	return sum / totalWeight
}

// hasConflict reports whether both P0 and P2 appear among the raw priorities.
// The flag is annotation only; the resolved priority still follows the P0 rule.
func hasConflict(issues []core.Issue) bool {
	var sawP0, sawP2 bool
	for _, i := range issues {
		switch i.Priority {
		case core.PriorityP0:
			sawP0 = true
		case core.PriorityP2:
			sawP2 = true
		}
	}
	return sawP0 && sawP2
}

// Aggregator turns clusters into reporting-ready consolidated issues.
type Aggregator struct {
	weights map[string]float64
}

// New creates an Aggregator with the configured per-reviewer weight map.
func New(weights map[string]float64) *Aggregator {
	if weights == nil {
		weights = map[string]float64{}
	}
	return &Aggregator{weights: weights}
}

// Consolidate finalizes every cluster. totalReviewers is the number of
// reviewers invoked for the run; a cluster touched by all of them gets the
// consensus flag. Output is sorted by (priority, file, line) so reports are
// stable across runs.
func (a *Aggregator) Consolidate(clusters []*core.IssueCluster, totalReviewers int) []core.ConsolidatedIssue {
	out := make([]core.ConsolidatedIssue, 0, len(clusters))
	for _, c := range clusters {
		reviewers := c.Reviewers()
		out = append(out, core.ConsolidatedIssue{
			FilePath:           c.FilePath,
			LineNumber:         c.LineNumber(),
			IssueType:          c.IssueType,
			Priority:           ResolvePriority(c.Issues),
			Descriptions:       c.Descriptions(),
			WeightedConfidence: Round2(WeightedConfidence(c.Issues, a.weights)),
			Reviewers:          reviewers,
			Consensus:          totalReviewers > 0 && len(reviewers) == totalReviewers,
			Conflict:           hasConflict(c.Issues),
			Sources:            c.Issues,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority.Rank() < out[j].Priority.Rank()
		}
		if out[i].FilePath != out[j].FilePath {
			return out[i].FilePath < out[j].FilePath
		}
		return out[i].LineNumber < out[j].LineNumber
	})
	return out
}

// Round2 rounds a confidence value to two decimals for reporting.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
