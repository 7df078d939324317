package reviewer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/code-quorum/internal/core"
)

func writeReviewersFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reviewers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRegistry(t *testing.T) {
	path := writeReviewersFile(t, `
reviewers:
  - id: lint-bot
    endpoint: http://lint.internal/review
    weight: 1.2
  - id: security-scan
    endpoint: http://sec.internal/review
  - id: legacy-checker
    endpoint: http://legacy.internal/review
    enabled: false
`)

	reg, err := LoadRegistry(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, reg.Len(), "disabled reviewers are skipped")

	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, "lint-bot", all[0].ID())
	assert.Equal(t, "security-scan", all[1].ID())

	weights := reg.Weights()
	assert.Equal(t, 1.2, weights["lint-bot"])
	assert.Equal(t, 1.0, weights["security-scan"], "missing weight defaults to 1.0")
}

func TestLoadRegistry_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", `reviewers: []`},
		{"missing endpoint", "reviewers:\n  - id: lint-bot\n"},
		{"duplicate id", "reviewers:\n  - id: lint-bot\n    endpoint: http://a\n  - id: lint-bot\n    endpoint: http://b\n"},
		{"negative weight", "reviewers:\n  - id: lint-bot\n    endpoint: http://a\n    weight: -1\n"},
		{"all disabled", "reviewers:\n  - id: lint-bot\n    endpoint: http://a\n    enabled: false\n"},
		{"not yaml", "{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeReviewersFile(t, tt.content)
			_, err := LoadRegistry(path, nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadRegistry_MissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()

	rev := core.ReviewerFunc{ReviewerID: "alpha", Fn: func(context.Context, core.ReviewPayload) (*core.IssueSet, error) {
		return &core.IssueSet{}, nil
	}}

	require.NoError(t, reg.Register(rev, 1.0))
	assert.Error(t, reg.Register(rev, 1.0), "duplicate ID")
	assert.Error(t, reg.Register(core.ReviewerFunc{ReviewerID: "  "}, 1.0), "blank ID")
	assert.Error(t, reg.Register(core.ReviewerFunc{ReviewerID: "beta"}, 0), "zero weight")
}

func TestHTTPReviewer_Review(t *testing.T) {
	want := core.IssueSet{
		ReviewerID: "remote",
		Issues: []core.Issue{{
			ReviewerID:  "remote",
			FilePath:    "svc.go",
			LineNumber:  10,
			IssueType:   "error-handling",
			Description: "unchecked error",
			Priority:    core.PriorityP1,
			Confidence:  0.8,
		}},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload core.ReviewPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "acme/api", payload.Repo)

		_ = json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	rev := NewHTTPReviewer("remote", srv.URL, srv.Client())
	set, err := rev.Review(context.Background(), core.ReviewPayload{Repo: "acme/api", Diff: "diff"})
	require.NoError(t, err)
	require.NotNil(t, set)
	assert.Equal(t, want.Issues, set.Issues)
}

func TestHTTPReviewer_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rev := NewHTTPReviewer("remote", srv.URL, srv.Client())
	_, err := rev.Review(context.Background(), core.ReviewPayload{Diff: "diff"})
	assert.Error(t, err)
}

func TestHTTPReviewer_ReportsContextExpiry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rev := NewHTTPReviewer("remote", srv.URL, srv.Client())
	_, err := rev.Review(ctx, core.ReviewPayload{Diff: "diff"})
	assert.ErrorIs(t, err, context.Canceled,
		"context expiry must surface unwrapped so the caller can classify it")
}
