// Package reviewer provides the gateway layer between the engine and the
// external analyzers it consults. Analyzers plug in through configuration,
// never through inheritance.
package reviewer

import (
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sevigo/code-quorum/internal/core"
)

// Spec describes one configured reviewer.
type Spec struct {
	ID       string  `yaml:"id"`
	Endpoint string  `yaml:"endpoint"`
	Weight   float64 `yaml:"weight"`
	Enabled  *bool   `yaml:"enabled,omitempty"`
}

// specFile is the on-disk reviewers.yaml layout.
type specFile struct {
	Reviewers []Spec `yaml:"reviewers"`
}

// Registry holds the configured reviewers and their confidence weights.
type Registry struct {
	reviewers map[string]core.Reviewer
	weights   map[string]float64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		reviewers: make(map[string]core.Reviewer),
		weights:   make(map[string]float64),
	}
}

// Register adds a reviewer with the given weight. Duplicate IDs and
// non-positive weights are configuration errors.
func (r *Registry) Register(rev core.Reviewer, weight float64) error {
	id := rev.ID()
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("reviewer has empty ID")
	}
	if _, exists := r.reviewers[id]; exists {
		return fmt.Errorf("duplicate reviewer ID %q", id)
	}
	if weight <= 0 {
		return fmt.Errorf("reviewer %q has non-positive weight %v", id, weight)
	}
	r.reviewers[id] = rev
	r.weights[id] = weight
	return nil
}

// All returns the registered reviewers sorted by ID.
func (r *Registry) All() []core.Reviewer {
	ids := make([]string, 0, len(r.reviewers))
	for id := range r.reviewers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]core.Reviewer, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.reviewers[id])
	}
	return out
}

// Weights returns the per-reviewer weight map used by the aggregator.
func (r *Registry) Weights() map[string]float64 {
	out := make(map[string]float64, len(r.weights))
	for id, w := range r.weights {
		out[id] = w
	}
	return out
}

// Len returns the number of registered reviewers.
func (r *Registry) Len() int { return len(r.reviewers) }

// LoadRegistry reads a reviewers.yaml file and builds a registry of HTTP
// reviewers from it, skipping disabled entries. Missing weights default to 1.0.
func LoadRegistry(path string, client *http.Client) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reviewers file: %w", err)
	}

	var file specFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse reviewers file: %w", err)
	}
	if len(file.Reviewers) == 0 {
		return nil, fmt.Errorf("reviewers file %q defines no reviewers", path)
	}

	reg := NewRegistry()
	for _, spec := range file.Reviewers {
		if spec.Enabled != nil && !*spec.Enabled {
			continue
		}
		if spec.Endpoint == "" {
			return nil, fmt.Errorf("reviewer %q has no endpoint", spec.ID)
		}
		weight := spec.Weight
		if weight == 0 {
			weight = 1.0
		}
		if err := reg.Register(NewHTTPReviewer(spec.ID, spec.Endpoint, client), weight); err != nil {
			return nil, err
		}
	}
	if reg.Len() == 0 {
		return nil, fmt.Errorf("reviewers file %q enables no reviewers", path)
	}
	return reg, nil
}
