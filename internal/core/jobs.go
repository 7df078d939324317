package core

import "context"

// ReviewRequest is a queued consolidation run. CycleID and Iteration tie the
// run to a review cycle; both are supplied by the caller, never minted here.
type ReviewRequest struct {
	CycleID   string        `json:"cycle_id"`
	Iteration int           `json:"iteration"`
	Payload   ReviewPayload `json:"payload"`
}

// JobDispatcher defines the contract for a system that can accept and queue
// consolidation runs for asynchronous processing. This interface decouples
// the request source (e.g., an HTTP handler) from the job execution mechanism.
type JobDispatcher interface {
	// Dispatch accepts a ReviewRequest and queues it for processing.
	// It returns an error if the job cannot be queued, for example, if the
	// queue is full, providing a mechanism for backpressure.
	Dispatch(ctx context.Context, req *ReviewRequest) error

	// Stop shuts the dispatcher down, waiting for in-flight runs to finish.
	Stop()
}

// Job represents a single, executable unit of work processed by the
// dispatcher. Each job consumes a ReviewRequest and performs one full
// consolidation run.
type Job interface {
	// Run executes the job's logic. It receives a context for managing its
	// lifecycle and the request describing the run to perform.
	Run(ctx context.Context, req *ReviewRequest) error
}
