// Package core defines the essential interfaces and data structures that form the
// backbone of the consolidation engine. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the engine's logic.
package core

import (
	"fmt"
	"strings"
)

// Priority is the reported urgency of an issue. The engine only understands
// the fixed P0/P1/P2 scale; anything else is rejected at the ingestion boundary.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
)

// Rank orders priorities for comparison; lower is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityP0:
		return 0
	case PriorityP1:
		return 1
	case PriorityP2:
		return 2
	default:
		return 3
	}
}

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	return p == PriorityP0 || p == PriorityP1 || p == PriorityP2
}

// Issue is a single raw observation produced by one reviewer. Issues are
// immutable once produced; downstream stages only read them.
type Issue struct {
	ReviewerID  string   `json:"reviewer_id"`
	FilePath    string   `json:"file_path"`
	LineNumber  int      `json:"line_number"`
	IssueType   string   `json:"issue_type"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Confidence  float64  `json:"confidence"`
}

// Validate checks the issue against the engine's ingestion rules. Issues that
// fail validation are dropped at the reviewer boundary so the pure stages
// (dedup, aggregation, themes) never see malformed data.
func (i *Issue) Validate() error {
	if strings.TrimSpace(i.ReviewerID) == "" {
		return fmt.Errorf("issue has no reviewer ID")
	}
	if strings.TrimSpace(i.FilePath) == "" {
		return fmt.Errorf("issue has no file path")
	}
	if i.LineNumber < 0 {
		return fmt.Errorf("issue has negative line number: %d", i.LineNumber)
	}
	if !i.Priority.Valid() {
		return fmt.Errorf("unknown priority %q", i.Priority)
	}
	if i.Confidence < 0 || i.Confidence > 1 {
		return fmt.Errorf("confidence %.3f outside [0,1]", i.Confidence)
	}
	return nil
}

// Recommendation is free-text advice from a reviewer. Recommendations are not
// tied one-to-one to issues; they feed theme synthesis only.
type Recommendation struct {
	ReviewerID string  `json:"reviewer_id"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// IssueSet is the full output of one reviewer invocation.
type IssueSet struct {
	ReviewerID      string           `json:"reviewer_id"`
	Issues          []Issue          `json:"issues"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}

// ReviewPayload is the read-only input shared by all reviewer invocations in
// a single run. Reviewers must treat it as immutable.
type ReviewPayload struct {
	Repo  string   `json:"repo,omitempty"`
	Ref   string   `json:"ref,omitempty"`
	Diff  string   `json:"diff,omitempty"`
	Files []string `json:"files,omitempty"`
}
