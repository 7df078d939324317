package themes

// Taxonomy maps theme names to the keywords that place a recommendation in
// that theme. Matching is case-insensitive substring search; a recommendation
// may land in several themes or in none.
type Taxonomy map[string][]string

// DefaultTaxonomy covers the systemic categories the engine reports on.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		"refactoring": {"refactor", "duplicate code", "duplication", "simplify", "extract", "complexity", "dead code"},
		"testing":     {"test", "coverage", "assert", "mock", "flaky"},
		"naming":      {"naming", "rename", "identifier", "misleading name", "abbreviation"},
		"architecture": {
			"architecture", "coupling", "cohesion", "layering", "dependency",
			"circular", "boundary",
		},
		"performance":    {"performance", "slow", "allocation", "latency", "n+1", "cache", "inefficient"},
		"security":       {"security", "injection", "sanitize", "secret", "credential", "vulnerab", "unsafe"},
		"documentation":  {"document", "comment", "readme", "docstring", "godoc"},
		"error-handling": {"error handling", "error is ignored", "unchecked error", "panic", "recover", "wrap the error"},
	}
}
