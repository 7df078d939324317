package core

import "time"

// ReportStatus is the overall verdict of a consolidation run.
type ReportStatus string

const (
	StatusGreen   ReportStatus = "GREEN"
	StatusYellow  ReportStatus = "YELLOW"
	StatusRed     ReportStatus = "RED"
	StatusPartial ReportStatus = "PARTIAL"
)

// PriorityCounts breaks down issue counts by priority level.
type PriorityCounts struct {
	P0 int `json:"p0"`
	P1 int `json:"p1"`
	P2 int `json:"p2"`
}

// Total returns the sum across all priority levels.
func (p PriorityCounts) Total() int {
	return p.P0 + p.P1 + p.P2
}

// DedupStats describes how much the deduplicator compressed the raw input.
// Ratio is final/raw; 1.0 means nothing merged.
type DedupStats struct {
	RawCount   int     `json:"raw_count"`
	FinalCount int     `json:"final_count"`
	Ratio      float64 `json:"ratio"`
}

// Theme is a named category grouping recommendations by subject matter.
type Theme struct {
	Name            string           `json:"name"`
	Recommendations []Recommendation `json:"recommendations"`
	Frequency       int              `json:"frequency"`
	AvgConfidence   float64          `json:"avg_confidence"`
}

// ConsolidatedReport is the engine's final output for one run. It is handed
// to external rendering as-is; the engine does no formatting of its own.
type ConsolidatedReport struct {
	RunID              string              `json:"run_id"`
	Status             ReportStatus        `json:"status"`
	PriorityCounts     PriorityCounts      `json:"priority_counts"`
	Issues             []ConsolidatedIssue `json:"issues"`
	Themes             []Theme             `json:"themes"`
	ReviewersCompleted int                 `json:"reviewers_completed"`
	ReviewersTotal     int                 `json:"reviewers_total"`
	MissingReviewers   []string            `json:"missing_reviewers,omitempty"`
	DedupStats         DedupStats          `json:"dedup_stats"`
	CreatedAt          time.Time           `json:"created_at"`
}
