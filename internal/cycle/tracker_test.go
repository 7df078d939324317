package cycle

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/code-quorum/internal/core"
	"github.com/sevigo/code-quorum/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTracker(store storage.CycleStore) *Tracker {
	return New(store, 2, 0.80, 0.50, testLogger())
}

func sig(file, issueType, desc string, p core.Priority) core.ClusterSignature {
	return core.ClusterSignature{FilePath: file, IssueType: issueType, Description: desc, Priority: p}
}

func record(cycleID string, iteration int, sigs ...core.ClusterSignature) *core.CycleRecord {
	counts := core.PriorityCounts{}
	for _, s := range sigs {
		switch s.Priority {
		case core.PriorityP0:
			counts.P0++
		case core.PriorityP1:
			counts.P1++
		case core.PriorityP2:
			counts.P2++
		}
	}
	return &core.CycleRecord{
		CycleID:         cycleID,
		Iteration:       iteration,
		Timestamp:       time.Now().UTC(),
		TotalIssueCount: len(sigs),
		PriorityCounts:  counts,
		Clusters:        sigs,
	}
}

func TestObserve_FirstIterationAlwaysContinues(t *testing.T) {
	tr := newTracker(storage.NewMemoryStore())

	decision, err := tr.Observe(context.Background(),
		record("c1", 1, sig("a.go", "security", "credentials in plain text", core.PriorityP0)))
	require.NoError(t, err)

	assert.Equal(t, core.ActionContinue, decision.Action,
		"a two-iteration cycle never escalates on its first observation, even with P0s present")
}

func TestObserve_SingleIterationCycleCloses(t *testing.T) {
	// With the iteration cap at 1 the first observation is also the last;
	// the cycle must finalize instead of continuing past its bound.
	tr := New(storage.NewMemoryStore(), 1, 0.80, 0.50, testLogger())
	ctx := context.Background()

	decision, err := tr.Observe(ctx,
		record("s1", 1, sig("db.go", "error-handling", "query error is ignored", core.PriorityP1)))
	require.NoError(t, err)

	assert.Equal(t, core.ActionClose, decision.Action)
	assert.Len(t, decision.Diff.New, 1, "with no baseline every observed cluster is new")

	state, err := storageState(tr, ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, core.CycleClosed, state)

	_, err = tr.Observe(ctx, record("s1", 2))
	assert.ErrorIs(t, err, core.ErrInvalidCycleSequence)
}

func TestObserve_SingleIterationCycleEscalatesOnP0(t *testing.T) {
	tr := New(storage.NewMemoryStore(), 1, 0.80, 0.50, testLogger())

	decision, err := tr.Observe(context.Background(),
		record("s2", 1, sig("auth.go", "security", "token is logged in clear text", core.PriorityP0)))
	require.NoError(t, err)

	assert.Equal(t, core.ActionEscalate, decision.Action,
		"a P0 with no automated iterations remaining needs a human")
}

func TestObserve_PersistentP0Escalates(t *testing.T) {
	// Cycle "c1": iteration 1 sees {a,b,c} with a at P0; iteration 2 sees
	// {a,d} with a still at P0. fixed={b,c}, new={d}, persistent={a}.
	tr := newTracker(storage.NewMemoryStore())
	ctx := context.Background()

	a := sig("auth.go", "security", "token is logged in clear text", core.PriorityP0)
	b := sig("db.go", "error-handling", "query error is ignored", core.PriorityP1)
	c := sig("api.go", "naming", "ambiguous handler name", core.PriorityP2)
	d := sig("cache.go", "performance", "cache is rebuilt on every request", core.PriorityP1)

	_, err := tr.Observe(ctx, record("c1", 1, a, b, c))
	require.NoError(t, err)

	decision, err := tr.Observe(ctx, record("c1", 2, a, d))
	require.NoError(t, err)

	assert.Equal(t, core.ActionEscalate, decision.Action)
	assert.Len(t, decision.Diff.Fixed, 2)
	assert.Len(t, decision.Diff.New, 1)
	require.Len(t, decision.Diff.Persistent, 1)
	assert.Equal(t, core.PriorityP0, decision.Diff.Persistent[0].Priority)
}

func TestObserve_ConvergedCycleCloses(t *testing.T) {
	tr := newTracker(storage.NewMemoryStore())
	ctx := context.Background()

	b := sig("db.go", "error-handling", "query error is ignored", core.PriorityP1)
	c := sig("api.go", "naming", "ambiguous handler name", core.PriorityP2)

	_, err := tr.Observe(ctx, record("c2", 1, b, c))
	require.NoError(t, err)

	decision, err := tr.Observe(ctx, record("c2", 2))
	require.NoError(t, err)
	assert.Equal(t, core.ActionClose, decision.Action)
	assert.Len(t, decision.Diff.Fixed, 2)

	state, err := storageState(tr, ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, core.CycleClosed, state)
}

func TestObserve_LowImprovementEscalates(t *testing.T) {
	tr := newTracker(storage.NewMemoryStore())
	ctx := context.Background()

	sigs := []core.ClusterSignature{
		sig("a.go", "naming", "first finding about naming", core.PriorityP2),
		sig("b.go", "naming", "second finding about naming", core.PriorityP2),
		sig("c.go", "naming", "third finding about naming", core.PriorityP2),
		sig("d.go", "naming", "fourth finding about naming", core.PriorityP2),
	}

	_, err := tr.Observe(ctx, record("c3", 1, sigs...))
	require.NoError(t, err)

	// Only one of four fixed: improvement 0.25 < 0.50.
	decision, err := tr.Observe(ctx, record("c3", 2, sigs[0], sigs[1], sigs[2]))
	require.NoError(t, err)
	assert.Equal(t, core.ActionEscalate, decision.Action)
}

func TestObserve_NetNegativeProgressEscalates(t *testing.T) {
	tr := newTracker(storage.NewMemoryStore())
	ctx := context.Background()

	old1 := sig("a.go", "naming", "old finding one", core.PriorityP2)
	old2 := sig("b.go", "naming", "old finding two", core.PriorityP2)

	_, err := tr.Observe(ctx, record("c4", 1, old1, old2))
	require.NoError(t, err)

	// Both prior findings fixed, but three new ones appeared.
	decision, err := tr.Observe(ctx, record("c4", 2,
		sig("x.go", "testing", "no tests for new module", core.PriorityP2),
		sig("y.go", "testing", "flaky integration test", core.PriorityP2),
		sig("z.go", "testing", "missing assertion in test", core.PriorityP2),
	))
	require.NoError(t, err)
	assert.Equal(t, core.ActionEscalate, decision.Action)
}

func TestObserve_MatchesShiftedLines(t *testing.T) {
	// Fixes shift code around, so matching between iterations goes by file,
	// type, and description similarity rather than by identity.
	tr := newTracker(storage.NewMemoryStore())
	ctx := context.Background()

	before := sig("svc.go", "error-handling", "the connection error is silently dropped", core.PriorityP0)
	after := sig("svc.go", "error-handling", "the connection error is silently dropped!", core.PriorityP0)

	_, err := tr.Observe(ctx, record("c5", 1, before))
	require.NoError(t, err)

	decision, err := tr.Observe(ctx, record("c5", 2, after))
	require.NoError(t, err)

	assert.Empty(t, decision.Diff.Fixed)
	assert.Empty(t, decision.Diff.New)
	require.Len(t, decision.Diff.Persistent, 1)
	assert.Equal(t, core.ActionEscalate, decision.Action, "persistent P0 at max iteration")
}

func TestObserve_RejectsOutOfOrderIteration(t *testing.T) {
	tr := newTracker(storage.NewMemoryStore())
	ctx := context.Background()

	_, err := tr.Observe(ctx, record("c6", 1, sig("a.go", "naming", "finding", core.PriorityP2)))
	require.NoError(t, err)

	_, err = tr.Observe(ctx, record("c6", 3))
	assert.ErrorIs(t, err, core.ErrInvalidCycleSequence)

	_, err = tr.Observe(ctx, record("c6", 1))
	assert.ErrorIs(t, err, core.ErrInvalidCycleSequence)
}

func TestObserve_RejectsFirstIterationNotOne(t *testing.T) {
	tr := newTracker(storage.NewMemoryStore())

	_, err := tr.Observe(context.Background(), record("c7", 2))
	assert.ErrorIs(t, err, core.ErrInvalidCycleSequence)
}

func TestObserve_RejectsFinishedCycle(t *testing.T) {
	tr := newTracker(storage.NewMemoryStore())
	ctx := context.Background()

	b := sig("db.go", "error-handling", "query error is ignored", core.PriorityP1)
	_, err := tr.Observe(ctx, record("c8", 1, b))
	require.NoError(t, err)
	_, err = tr.Observe(ctx, record("c8", 2))
	require.NoError(t, err)

	// The cycle is finished; nothing more may be recorded against its ID.
	_, err = tr.Observe(ctx, record("c8", 3))
	assert.ErrorIs(t, err, core.ErrInvalidCycleSequence)
}

func TestObserve_CycleBound(t *testing.T) {
	// No cycle ID yields more than maxIterations accepted observations.
	tr := newTracker(storage.NewMemoryStore())
	ctx := context.Background()

	accepted := 0
	for i := 1; i <= 5; i++ {
		_, err := tr.Observe(ctx, record("c9", i, sig("a.go", "naming", "finding", core.PriorityP2)))
		if err != nil {
			break
		}
		accepted++
	}
	assert.Equal(t, 2, accepted)
}

// storageState reads the cycle state through the tracker's store.
func storageState(tr *Tracker, ctx context.Context, cycleID string) (core.CycleState, error) {
	return tr.store.State(ctx, cycleID)
}
