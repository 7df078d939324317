package dedup

import (
	"unicode/utf8"

	"github.com/agext/levenshtein"
)

// Similarity computes normalized edit-distance similarity between two
// strings: 1 - distance/max(len). Lengths are counted in runes to match the
// rune-based edit distance.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	lenA := utf8.RuneCountInString(a)
	lenB := utf8.RuneCountInString(b)
	maxLen := lenA
	if lenB > maxLen {
		maxLen = lenB
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.Distance(a, b, nil)
	return 1 - float64(dist)/float64(maxLen)
}

// simCache memoizes similarity scores for one deduplication run. The cache is
// deliberately request-scoped, never process-wide, so runs stay independent
// and reproducible.
type simCache struct {
	threshold float64
	scores    map[[2]string]float64
}

func newSimCache(threshold float64) *simCache {
	return &simCache{threshold: threshold, scores: make(map[[2]string]float64)}
}

// similarity returns the cached score for the ordered string pair, with an
// early exit: when the length gap alone already caps the score below the
// threshold, the distance computation is skipped entirely.
func (c *simCache) similarity(a, b string) float64 {
	if a > b {
		a, b = b, a
	}
	key := [2]string{a, b}
	if score, ok := c.scores[key]; ok {
		return score
	}

	lenA := utf8.RuneCountInString(a)
	lenB := utf8.RuneCountInString(b)
	maxLen := lenA
	minLen := lenB
	if lenB > lenA {
		maxLen, minLen = lenB, lenA
	}

	var score float64
	switch {
	case maxLen == 0:
		score = 1
	case float64(maxLen-minLen) > (1-c.threshold)*float64(maxLen):
		// The length difference already exceeds the maximum edit distance
		// the threshold permits; no need to compute the real distance.
		score = 0
	default:
		score = Similarity(a, b)
	}

	c.scores[key] = score
	return score
}
