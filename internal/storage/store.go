// Package storage persists per-cycle state, the only data that survives
// across separate consolidation runs.
package storage

import (
	"context"

	"github.com/sevigo/code-quorum/internal/core"
)

// CycleStore defines the persistence contract for cycle tracking. Records are
// keyed exclusively by the caller-supplied cycle ID; only the current and the
// immediately preceding iteration need to be retained.
type CycleStore interface {
	// State returns the cycle's lifecycle state. Unknown cycle IDs report
	// CycleOpen: a cycle exists implicitly once its first record arrives.
	State(ctx context.Context, cycleID string) (core.CycleState, error)

	// Latest returns the most recent record for the cycle, or nil when the
	// cycle has no records yet.
	Latest(ctx context.Context, cycleID string) (*core.CycleRecord, error)

	// SaveRecord persists a record and prunes anything older than the
	// immediately preceding iteration.
	SaveRecord(ctx context.Context, rec *core.CycleRecord) error

	// SetState transitions the cycle's lifecycle state.
	SetState(ctx context.Context, cycleID string, state core.CycleState) error
}
