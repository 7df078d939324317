package themes

import (
	"testing"

	"github.com/sevigo/code-quorum/internal/core"
)

func rec(reviewer, text string, confidence float64) core.Recommendation {
	return core.Recommendation{ReviewerID: reviewer, Text: text, Confidence: confidence}
}

func TestSynthesize_ConfidenceFloor(t *testing.T) {
	s := New(nil, 0.60, 10)

	got := s.Synthesize([]core.Recommendation{
		rec("a", "add tests for the parser", 0.59),
		rec("b", "add tests for the encoder", 0.60),
	})

	if len(got) != 1 {
		t.Fatalf("expected 1 theme, got %d", len(got))
	}
	if got[0].Name != "testing" {
		t.Errorf("expected testing theme, got %q", got[0].Name)
	}
	if len(got[0].Recommendations) != 1 {
		t.Errorf("sub-floor recommendation must be dropped, got %d members", len(got[0].Recommendations))
	}
}

func TestSynthesize_MultiLabel(t *testing.T) {
	s := New(nil, 0.60, 10)

	got := s.Synthesize([]core.Recommendation{
		rec("a", "refactor the handler and add tests for it", 0.9),
	})

	if len(got) != 2 {
		t.Fatalf("expected recommendation in two themes, got %d", len(got))
	}
	names := map[string]bool{got[0].Name: true, got[1].Name: true}
	if !names["refactoring"] || !names["testing"] {
		t.Errorf("expected refactoring and testing, got %v", names)
	}
}

func TestSynthesize_Ranking(t *testing.T) {
	s := New(nil, 0.60, 10)

	got := s.Synthesize([]core.Recommendation{
		rec("a", "add tests for the parser", 0.7),
		rec("b", "test coverage is too low", 0.7),
		rec("a", "sanitize user input to avoid injection", 0.99),
	})

	if len(got) != 2 {
		t.Fatalf("expected 2 themes, got %d", len(got))
	}
	// Two distinct reviewers on testing beats one high-confidence security hit.
	if got[0].Name != "testing" || got[0].Frequency != 2 {
		t.Errorf("expected testing first with frequency 2, got %q/%d", got[0].Name, got[0].Frequency)
	}
	if got[1].Name != "security" {
		t.Errorf("expected security second, got %q", got[1].Name)
	}
}

func TestSynthesize_FrequencyCountsDistinctReviewers(t *testing.T) {
	s := New(nil, 0.60, 10)

	got := s.Synthesize([]core.Recommendation{
		rec("a", "add tests", 0.7),
		rec("a", "more test coverage please", 0.8),
	})

	if len(got) != 1 {
		t.Fatalf("expected 1 theme, got %d", len(got))
	}
	if got[0].Frequency != 1 {
		t.Errorf("frequency must count distinct reviewers, got %d", got[0].Frequency)
	}
	if got[0].AvgConfidence != 0.75 {
		t.Errorf("expected avg confidence 0.75, got %v", got[0].AvgConfidence)
	}
}

func TestSynthesize_TopK(t *testing.T) {
	s := New(nil, 0.60, 2)

	got := s.Synthesize([]core.Recommendation{
		rec("a", "add tests", 0.7),
		rec("a", "refactor this package", 0.7),
		rec("a", "document the exported API", 0.7),
		rec("a", "rename the misleading name", 0.7),
	})

	if len(got) != 2 {
		t.Errorf("expected ranking capped at 2 themes, got %d", len(got))
	}
}

func TestSynthesize_Unclassified(t *testing.T) {
	s := New(nil, 0.60, 10)

	got := s.Synthesize([]core.Recommendation{
		rec("a", "looks good to me overall", 0.9),
	})
	if len(got) != 0 {
		t.Errorf("recommendation matching no taxonomy keyword must produce no theme, got %d", len(got))
	}
}
