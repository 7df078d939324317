package dedup

import (
	"log/slog"
	"math/rand"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/code-quorum/internal/core"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testIssue(reviewer, file string, line int, issueType, desc string) core.Issue {
	return core.Issue{
		ReviewerID:  reviewer,
		FilePath:    file,
		LineNumber:  line,
		IssueType:   issueType,
		Description: desc,
		Priority:    core.PriorityP2,
		Confidence:  0.8,
	}
}

func TestCluster_ExactGrouping(t *testing.T) {
	d := New(0.80, 10, testLogger())

	issues := []core.Issue{
		testIssue("style", "pkg/a.go", 42, "naming", "variable x is unclear"),
		testIssue("arch", "pkg/a.go", 44, "naming", "x is a poor name"),
		testIssue("test", "pkg/b.go", 42, "naming", "variable x is unclear"),
	}

	clusters := d.Cluster(issues)
	require.Len(t, clusters, 2, "same file/type/bucket must group, different files must not")

	var merged *core.IssueCluster
	for _, c := range clusters {
		if c.FilePath == "pkg/a.go" {
			merged = c
		}
	}
	require.NotNil(t, merged)
	assert.Len(t, merged.Issues, 2)
	assert.Equal(t, []string{"arch", "style"}, merged.Reviewers())
}

func TestCluster_SemanticMerge(t *testing.T) {
	d := New(0.80, 10, testLogger())

	// Same file, lines within the window, near-identical descriptions but
	// different issue types, so phase A keeps them apart.
	issues := []core.Issue{
		testIssue("style", "pkg/a.go", 85, "error-handling", "unchecked error return in handler"),
		testIssue("arch", "pkg/a.go", 87, "robustness", "unchecked error return in handlers"),
	}
	issues[0].Priority = core.PriorityP0
	issues[1].Priority = core.PriorityP1

	clusters := d.Cluster(issues)
	require.Len(t, clusters, 1, "similar descriptions within the line window must merge")
	assert.Len(t, clusters[0].Issues, 2)
	assert.Equal(t, 85, clusters[0].LineNumber())
}

func TestCluster_LineWindowGuard(t *testing.T) {
	d := New(0.80, 10, testLogger())

	// Identical text but 200 lines apart: the proximity guard must keep
	// these separate no matter how similar the wording is.
	issues := []core.Issue{
		testIssue("style", "pkg/a.go", 10, "naming", "this function does too much"),
		testIssue("arch", "pkg/a.go", 210, "structure", "this function does too much"),
	}

	clusters := d.Cluster(issues)
	assert.Len(t, clusters, 2)
}

func TestCluster_DifferentFilesNeverMerge(t *testing.T) {
	d := New(0.80, 10, testLogger())

	issues := []core.Issue{
		testIssue("style", "pkg/a.go", 10, "naming", "this identifier is misleading"),
		testIssue("arch", "pkg/b.go", 10, "structure", "this identifier is misleading"),
	}

	clusters := d.Cluster(issues)
	assert.Len(t, clusters, 2)
}

func TestCluster_OrderIndependence(t *testing.T) {
	d := New(0.80, 10, testLogger())

	issues := []core.Issue{
		testIssue("style", "pkg/a.go", 42, "naming", "variable x is unclear"),
		testIssue("arch", "pkg/a.go", 44, "naming", "x is a poor name"),
		testIssue("test", "pkg/a.go", 85, "error-handling", "unchecked error return in handler"),
		testIssue("principles", "pkg/a.go", 87, "robustness", "unchecked error return in handlers"),
		testIssue("style", "pkg/b.go", 10, "documentation", "exported function lacks a comment"),
	}

	reference := fingerprint(d.Cluster(issues))

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := make([]core.Issue, len(issues))
		copy(shuffled, issues)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		assert.Equal(t, reference, fingerprint(d.Cluster(shuffled)))
	}
}

func TestCluster_Idempotence(t *testing.T) {
	d := New(0.80, 10, testLogger())

	issues := []core.Issue{
		testIssue("style", "pkg/a.go", 42, "naming", "variable x is unclear"),
		testIssue("arch", "pkg/a.go", 44, "naming", "x is a poor name"),
		testIssue("test", "pkg/a.go", 85, "error-handling", "unchecked error return in handler"),
	}

	first := d.Cluster(issues)

	// Re-running over the flattened output must not merge anything further.
	var flattened []core.Issue
	for _, c := range first {
		flattened = append(flattened, c.Issues...)
	}
	second := d.Cluster(flattened)

	assert.Equal(t, fingerprint(first), fingerprint(second))
}

func TestCluster_Lossless(t *testing.T) {
	d := New(0.80, 10, testLogger())

	issues := []core.Issue{
		testIssue("a", "x.go", 1, "naming", "bad name"),
		testIssue("b", "x.go", 1, "naming", "bad name"),
		testIssue("c", "x.go", 2, "naming", "terrible name choice"),
	}

	clusters := d.Cluster(issues)
	total := 0
	for _, c := range clusters {
		total += len(c.Issues)
	}
	assert.Equal(t, len(issues), total, "every source issue must survive clustering")
}

func TestCluster_DistinctDescriptions(t *testing.T) {
	d := New(0.80, 10, testLogger())

	issues := []core.Issue{
		testIssue("a", "x.go", 1, "naming", "bad name"),
		testIssue("b", "x.go", 1, "naming", "bad name"),
		testIssue("c", "x.go", 1, "naming", "bad name indeed"),
	}

	clusters := d.Cluster(issues)
	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"bad name", "bad name indeed"}, clusters[0].Descriptions())
}

func TestCluster_Empty(t *testing.T) {
	d := New(0.80, 10, testLogger())
	assert.Nil(t, d.Cluster(nil))
}

// fingerprint flattens clusters into a comparable shape.
func fingerprint(clusters []*core.IssueCluster) [][]core.Issue {
	out := make([][]core.Issue, 0, len(clusters))
	for _, c := range clusters {
		members := make([]core.Issue, len(c.Issues))
		copy(members, c.Issues)
		out = append(out, members)
	}
	return out
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "same text", b: "same text", want: 1},
		{name: "both empty", a: "", b: "", want: 1},
		{name: "one empty", a: "abcd", b: "", want: 0},
		{name: "single edit", a: "abcde", b: "abcdx", want: 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimCache_LengthEarlyExit(t *testing.T) {
	c := newSimCache(0.80)

	// 30% length difference already caps similarity below 0.80; the cache
	// must short-circuit to zero.
	short := "abcdefg"
	long := "abcdefgabcdefgabcdefg"
	assert.Equal(t, 0.0, c.similarity(short, long))

	// Symmetric lookup hits the same cache entry.
	assert.Equal(t, 0.0, c.similarity(long, short))
}
