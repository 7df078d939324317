package core

import "errors"

var (
	// ErrAllReviewersFailed signals that zero reviewers produced a usable
	// IssueSet. The run is fatal: an empty report and "no reviewer could be
	// consulted" are observably different outcomes for the caller.
	ErrAllReviewersFailed = errors.New("all reviewers failed or timed out")

	// ErrInvalidCycleSequence signals an out-of-order iteration number or
	// reuse of a closed/escalated cycle ID. Rejected before any state mutation.
	ErrInvalidCycleSequence = errors.New("invalid cycle iteration sequence")

	// ErrNoReviewers signals a run requested with an empty reviewer set.
	ErrNoReviewers = errors.New("no reviewers configured")
)
