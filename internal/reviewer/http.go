package reviewer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sevigo/code-quorum/internal/core"
)

// maxResponseBytes caps how much of an analyzer response is read. Reviewers
// are external and not trusted to be well behaved.
const maxResponseBytes = 8 << 20

// HTTPReviewer invokes a remote analyzer over HTTP: the payload is POSTed as
// JSON and the response body is decoded as an IssueSet. Cancellation and the
// per-reviewer deadline arrive through the request context.
type HTTPReviewer struct {
	id       string
	endpoint string
	client   *http.Client
}

// NewHTTPReviewer creates a gateway to the analyzer at endpoint. A nil client
// falls back to http.DefaultClient; the orchestrator's context deadline
// bounds each call either way.
func NewHTTPReviewer(id, endpoint string, client *http.Client) *HTTPReviewer {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPReviewer{id: id, endpoint: endpoint, client: client}
}

func (r *HTTPReviewer) ID() string { return r.id }

// Review posts the payload to the analyzer and decodes its findings.
func (r *HTTPReviewer) Review(ctx context.Context, payload core.ReviewPayload) (*core.IssueSet, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		// Unwrap so the orchestrator can classify deadline expiry as a
		// timeout rather than a generic failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("analyzer request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analyzer returned status %d", resp.StatusCode)
	}

	var set core.IssueSet
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to decode analyzer response: %w", err)
	}
	return &set, nil
}
