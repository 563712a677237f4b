// ABOUTME: HTTP client for the orchestrator REST API: run lookup, historical log/metric fetches,
// ABOUTME: and long-lived SSE stream opens with the bearer credential attached as a request header.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Client talks to the orchestrator backend. It is safe for concurrent use;
// all mutable state lives in the underlying http.Client.
//
// Streaming opens deliberately carry no request deadline: a healthy log
// stream may be silent for minutes, and resilience against a dead transport
// comes from the stream package's bounded reconnect, not from timeouts.
type Client struct {
	baseURL string
	creds   CredentialSource
	http    *http.Client
}

// NewClient creates a Client for the orchestrator at baseURL. A nil creds
// falls back to EnvFileCredentials.
func NewClient(baseURL string, creds CredentialSource) *Client {
	if creds == nil {
		creds = EnvFileCredentials{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		http:    &http.Client{},
	}
}

// newRequest builds a request with the bearer credential attached. The token
// is read from the credential source at call time; absence is fatal for this
// attempt and surfaces as ErrNoCredential.
func (c *Client) newRequest(ctx context.Context, path string) (*http.Request, error) {
	tok, err := c.creds.Token()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return req, nil
}

// Run fetches the current state of a single run.
func (c *Client) Run(ctx context.Context, runID string) (*Run, error) {
	req, err := c.newRequest(ctx, "/api/runs/"+runID)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get run: unexpected status %d", resp.StatusCode)
	}
	var run Run
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return &run, nil
}

// LogTail fetches the last n lines of a run's stored log output as plain
// newline-delimited text. Used once a run is terminal, in place of streaming.
func (c *Client) LogTail(ctx context.Context, runID string, n int) ([]string, error) {
	req, err := c.newRequest(ctx, "/api/runs/"+runID+"/logs?tail="+strconv.Itoa(n))
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("log tail: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("log tail: unexpected status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("log tail: read body: %w", err)
	}
	text := strings.TrimRight(string(b), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

// MetricHistory fetches the full stored metrics array for a run.
func (c *Client) MetricHistory(ctx context.Context, runID string) ([]MetricSample, error) {
	req, err := c.newRequest(ctx, "/api/runs/"+runID+"/metrics")
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metric history: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metric history: unexpected status %d", resp.StatusCode)
	}
	var samples []MetricSample
	if err := json.NewDecoder(resp.Body).Decode(&samples); err != nil {
		return nil, fmt.Errorf("decode metric history: %w", err)
	}
	return samples, nil
}

// OpenLogStream opens the long-lived SSE log stream for a run. The caller
// owns the returned body and must close it; cancelling ctx aborts any
// in-flight read.
func (c *Client) OpenLogStream(ctx context.Context, runID string) (io.ReadCloser, error) {
	return c.openStream(ctx, "/api/runs/"+runID+"/logs/stream")
}

// OpenMetricStream opens the long-lived SSE metrics stream for a run.
func (c *Client) OpenMetricStream(ctx context.Context, runID string) (io.ReadCloser, error) {
	return c.openStream(ctx, "/api/runs/"+runID+"/metrics/stream")
}

// openStream performs the streaming GET. The bearer token goes in a header
// rather than the URL, which is why this is a manual request and not an
// event-source style client.
func (c *Client) openStream(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, path)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("open stream: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
