package core

import "time"

// CycleState tracks where a review cycle sits in its lifecycle. A cycle
// reaches CLOSED or ESCALATED at most once and is frozen afterwards.
type CycleState string

const (
	CycleOpen      CycleState = "OPEN"
	CycleClosed    CycleState = "CLOSED"
	CycleEscalated CycleState = "ESCALATED"
)

// CycleAction is the decision emitted after each consolidation run in a cycle.
type CycleAction string

const (
	ActionContinue CycleAction = "CONTINUE"
	ActionClose    CycleAction = "CLOSE"
	ActionEscalate CycleAction = "ESCALATE"
)

// ClusterSignature identifies a cluster for cross-iteration diffing. Matching
// between iterations is by file, type, and description similarity rather than
// identity, since fixes commonly shift line numbers.
type ClusterSignature struct {
	FilePath    string   `json:"file_path"`
	IssueType   string   `json:"issue_type"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
}

// CycleRecord is the persisted observation of one consolidation run within a
// cycle. Records survive across runs sharing a cycle_id until the cycle
// closes or escalates.
type CycleRecord struct {
	CycleID         string             `json:"cycle_id"`
	Iteration       int                `json:"iteration"`
	Timestamp       time.Time          `json:"timestamp"`
	TotalIssueCount int                `json:"total_issue_count"`
	PriorityCounts  PriorityCounts     `json:"priority_counts"`
	Clusters        []ClusterSignature `json:"clusters"`
}

// CycleDiff is the structured comparison between two consecutive records.
// Escalation decisions always carry it so a human never has to re-derive
// what changed.
type CycleDiff struct {
	Fixed      []ClusterSignature `json:"fixed"`
	New        []ClusterSignature `json:"new"`
	Persistent []ClusterSignature `json:"persistent"`
}

// CycleDecision is the tracker's verdict after recording an iteration.
type CycleDecision struct {
	Action    CycleAction `json:"action"`
	CycleID   string      `json:"cycle_id"`
	Iteration int         `json:"iteration"`
	Diff      CycleDiff   `json:"diff"`
}
