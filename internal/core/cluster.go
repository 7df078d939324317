package core

import "sort"

// IssueCluster is a set of issues deemed equivalent after deduplication.
// Clusters only grow by membership addition within one consolidation run;
// they keep every contributing source issue so nothing is lost in the merge.
type IssueCluster struct {
	FilePath  string
	IssueType string
	Issues    []Issue
}

// Add appends an issue to the cluster.
func (c *IssueCluster) Add(issue Issue) {
	c.Issues = append(c.Issues, issue)
}

// Merge absorbs all issues from another cluster.
func (c *IssueCluster) Merge(other *IssueCluster) {
	c.Issues = append(c.Issues, other.Issues...)
}

// LineNumber returns the representative line for the cluster, which is the
// smallest line number among its members.
func (c *IssueCluster) LineNumber() int {
	if len(c.Issues) == 0 {
		return 0
	}
	line := c.Issues[0].LineNumber
	for _, i := range c.Issues[1:] {
		if i.LineNumber < line {
			line = i.LineNumber
		}
	}
	return line
}

// Reviewers returns the sorted set of distinct reviewer IDs that contributed.
func (c *IssueCluster) Reviewers() []string {
	seen := make(map[string]struct{}, len(c.Issues))
	var ids []string
	for _, i := range c.Issues {
		if _, ok := seen[i.ReviewerID]; !ok {
			seen[i.ReviewerID] = struct{}{}
			ids = append(ids, i.ReviewerID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Descriptions returns the distinct description variants in membership order.
func (c *IssueCluster) Descriptions() []string {
	seen := make(map[string]struct{}, len(c.Issues))
	var out []string
	for _, i := range c.Issues {
		if _, ok := seen[i.Description]; !ok {
			seen[i.Description] = struct{}{}
			out = append(out, i.Description)
		}
	}
	return out
}

// ConsolidatedIssue is the finalized, reporting-ready view of a cluster. It
// references its source issues one-directionally so the type serializes
// without cycles.
type ConsolidatedIssue struct {
	FilePath           string   `json:"file_path"`
	LineNumber         int      `json:"line_number"`
	IssueType          string   `json:"issue_type"`
	Priority           Priority `json:"priority"`
	Descriptions       []string `json:"descriptions"`
	WeightedConfidence float64  `json:"weighted_confidence"`
	Reviewers          []string `json:"reviewers"`
	Consensus          bool     `json:"consensus"`
	Conflict           bool     `json:"conflict"`
	Sources            []Issue  `json:"sources"`
}
