// Package dedup groups raw issues into clusters using exact key matching
// followed by a bounded text-similarity merge.
package dedup

import (
	"log/slog"
	"sort"

	"github.com/sevigo/code-quorum/internal/core"
)

// Deduplicator clusters issues deterministically: identical input multisets
// always yield identical clusters regardless of arrival order.
type Deduplicator struct {
	threshold float64
	window    int
	logger    *slog.Logger
}

// New creates a Deduplicator. threshold is the minimum description similarity
// for a semantic merge, window the maximum line distance between merge
// candidates. Both are validated by the config layer before reaching here.
func New(threshold float64, window int, logger *slog.Logger) *Deduplicator {
	return &Deduplicator{threshold: threshold, window: window, logger: logger}
}

// exactKey is the phase-A composite grouping key. Lines are normalized into
// buckets of window size so near-identical reports land in one group cheaply.
type exactKey struct {
	filePath   string
	issueType  string
	lineBucket int
}

// Cluster runs both deduplication phases over the issues and returns the
// resulting clusters in canonical order. The input slice is not modified.
func (d *Deduplicator) Cluster(issues []core.Issue) []*core.IssueCluster {
	if len(issues) == 0 {
		return nil
	}

	sorted := canonicalize(issues)
	clusters := d.groupExact(sorted)
	clusters = d.mergeSimilar(clusters)

	d.logger.Debug("deduplication complete",
		"raw", len(issues),
		"clusters", len(clusters),
	)
	return clusters
}

// canonicalize returns a copy of issues sorted by (file, line, reviewer) with
// type and description as final tie-breaks. Clustering over this order is
// what makes the output independent of arrival order.
func canonicalize(issues []core.Issue) []core.Issue {
	sorted := make([]core.Issue, len(issues))
	copy(sorted, issues)
	sort.Slice(sorted, func(a, b int) bool {
		ia, ib := sorted[a], sorted[b]
		if ia.FilePath != ib.FilePath {
			return ia.FilePath < ib.FilePath
		}
		if ia.LineNumber != ib.LineNumber {
			return ia.LineNumber < ib.LineNumber
		}
		if ia.ReviewerID != ib.ReviewerID {
			return ia.ReviewerID < ib.ReviewerID
		}
		if ia.IssueType != ib.IssueType {
			return ia.IssueType < ib.IssueType
		}
		return ia.Description < ib.Description
	})
	return sorted
}

// groupExact is phase A: O(n) hash grouping by (file, type, line bucket).
// This removes the bulk of duplicates before the quadratic phase runs.
func (d *Deduplicator) groupExact(sorted []core.Issue) []*core.IssueCluster {
	byKey := make(map[exactKey]*core.IssueCluster)
	var clusters []*core.IssueCluster

	for _, issue := range sorted {
		key := exactKey{
			filePath:   issue.FilePath,
			issueType:  issue.IssueType,
			lineBucket: issue.LineNumber / d.window,
		}
		if c, ok := byKey[key]; ok {
			c.Add(issue)
			continue
		}
		c := &core.IssueCluster{FilePath: issue.FilePath, IssueType: issue.IssueType}
		c.Add(issue)
		byKey[key] = c
		clusters = append(clusters, c)
	}
	return clusters
}

// mergeSimilar is phase B: pairwise semantic merging of clusters phase A left
// apart. Two clusters merge only when description similarity clears the
// threshold AND they share a file AND their lines sit within the proximity
// window. The file/line guard is mandatory: similarity alone produces false
// positives on generically worded issues in unrelated locations.
//
// Candidates are visited in canonical order and later clusters merge into
// earlier ones, which canonicalizes merge order.
func (d *Deduplicator) mergeSimilar(clusters []*core.IssueCluster) []*core.IssueCluster {
	cache := newSimCache(d.threshold)
	consumed := make([]bool, len(clusters))

	for i := 0; i < len(clusters); i++ {
		if consumed[i] {
			continue
		}
		for j := i + 1; j < len(clusters); j++ {
			if consumed[j] || clusters[i].FilePath != clusters[j].FilePath {
				continue
			}
			delta := clusters[i].LineNumber() - clusters[j].LineNumber()
			if delta < 0 {
				delta = -delta
			}
			if delta > d.window {
				continue
			}
			if cache.similarity(primaryDescription(clusters[i]), primaryDescription(clusters[j])) < d.threshold {
				continue
			}
			clusters[i].Merge(clusters[j])
			consumed[j] = true
		}
	}

	out := clusters[:0]
	for i, c := range clusters {
		if !consumed[i] {
			out = append(out, c)
		}
	}
	return out
}

// primaryDescription is the cluster's representative text for similarity
// comparison: the first distinct variant in canonical membership order.
func primaryDescription(c *core.IssueCluster) string {
	if len(c.Issues) == 0 {
		return ""
	}
	return c.Issues[0].Description
}
