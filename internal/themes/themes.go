// Package themes classifies free-text recommendations into ranked thematic
// buckets. The output answers "what systemic categories of problems exist",
// distinct from the per-issue priority list.
package themes

import (
	"sort"
	"strings"

	"github.com/sevigo/code-quorum/internal/aggregate"
	"github.com/sevigo/code-quorum/internal/core"
)

// Synthesizer buckets recommendations by keyword against a fixed taxonomy.
// The classifier is deliberately simple; anything stronger may replace it as
// long as it stays deterministic, multi-label, and ranked by frequency then
// confidence.
type Synthesizer struct {
	taxonomy  Taxonomy
	floor     float64
	maxThemes int
}

// New creates a Synthesizer. floor is the minimum confidence for a
// recommendation to be considered actionable; maxThemes caps the ranking.
func New(taxonomy Taxonomy, floor float64, maxThemes int) *Synthesizer {
	if taxonomy == nil {
		taxonomy = DefaultTaxonomy()
	}
	return &Synthesizer{taxonomy: taxonomy, floor: floor, maxThemes: maxThemes}
}

// Synthesize classifies the recommendations and returns the top themes ranked
// by (frequency desc, avg confidence desc), name ascending as the final
// tie-break for determinism.
func (s *Synthesizer) Synthesize(recs []core.Recommendation) []core.Theme {
	buckets := make(map[string][]core.Recommendation)

	for _, rec := range recs {
		if rec.Confidence < s.floor {
			continue
		}
		text := strings.ToLower(rec.Text)
		for name, keywords := range s.taxonomy {
			for _, kw := range keywords {
				if strings.Contains(text, kw) {
					buckets[name] = append(buckets[name], rec)
					break
				}
			}
		}
	}

	out := make([]core.Theme, 0, len(buckets))
	for name, members := range buckets {
		reviewers := make(map[string]struct{})
		var sum float64
		for _, m := range members {
			reviewers[m.ReviewerID] = struct{}{}
			sum += m.Confidence
		}
		out = append(out, core.Theme{
			Name:            name,
			Recommendations: members,
			Frequency:       len(reviewers),
			AvgConfidence:   aggregate.Round2(sum / float64(len(members))),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		if out[i].AvgConfidence != out[j].AvgConfidence {
			return out[i].AvgConfidence > out[j].AvgConfidence
		}
		return out[i].Name < out[j].Name
	})

	if s.maxThemes > 0 && len(out) > s.maxThemes {
		out = out[:s.maxThemes]
	}
	return out
}
