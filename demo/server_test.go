// ABOUTME: Tests for the demo orchestrator: bearer auth, run lookup, tail and history
// ABOUTME: endpoints, and end-to-end SSE framing on the live streams.
package demo_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/runboard/runboard/api"
	"github.com/runboard/runboard/demo"
)

const testToken = "demo-secret"

func newTestServer(t *testing.T) (*demo.Server, *httptest.Server) {
	t.Helper()
	s := demo.NewServer(testToken)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func finishedRun(t *testing.T, s *demo.Server, ticks int) *demo.Run {
	t.Helper()
	run := demo.NewRun("deploy")
	s.AddRun(run)
	run.Start(time.Millisecond, ticks)
	select {
	case <-run.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish in time")
	}
	return run
}

func TestAuthRequired(t *testing.T) {
	s, ts := newTestServer(t)
	run := demo.NewRun("deploy")
	s.AddRun(run)

	resp := get(t, ts.URL+"/api/runs/"+run.ID(), "")
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("missing token: status = %d, want 401", resp.StatusCode)
	}

	resp2 := get(t, ts.URL+"/api/runs/"+run.ID(), "wrong")
	defer func() { _ = resp2.Body.Close() }()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", resp2.StatusCode)
	}

	resp3 := get(t, ts.URL+"/health", "")
	defer func() { _ = resp3.Body.Close() }()
	if resp3.StatusCode != http.StatusOK {
		t.Errorf("health must be unprotected, status = %d", resp3.StatusCode)
	}
}

func TestRunLookup(t *testing.T) {
	s, ts := newTestServer(t)
	run := finishedRun(t, s, 2)

	resp := get(t, ts.URL+"/api/runs/"+run.ID(), testToken)
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got api.Run
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if got.ID != run.ID() || got.Pipeline != "deploy" {
		t.Errorf("run = %+v", got)
	}
	if got.Status != api.RunSuccess {
		t.Errorf("status = %s, want SUCCESS", got.Status)
	}

	missing := get(t, ts.URL+"/api/runs/nope", testToken)
	defer func() { _ = missing.Body.Close() }()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("unknown run: status = %d, want 404", missing.StatusCode)
	}
}

func TestLogTail(t *testing.T) {
	s, ts := newTestServer(t)
	run := finishedRun(t, s, 4)

	resp := get(t, ts.URL+"/api/runs/"+run.ID()+"/logs?tail=2", testToken)
	defer func() { _ = resp.Body.Close() }()
	b, _ := io.ReadAll(resp.Body)

	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 tail lines, got %d: %q", len(lines), string(b))
	}
	if !strings.HasPrefix(lines[0], "[step 3/4]") || !strings.HasPrefix(lines[1], "[step 4/4]") {
		t.Errorf("expected the last two steps, got %v", lines)
	}
}

func TestMetricHistory(t *testing.T) {
	s, ts := newTestServer(t)
	run := finishedRun(t, s, 3)

	resp := get(t, ts.URL+"/api/runs/"+run.ID()+"/metrics", testToken)
	defer func() { _ = resp.Body.Close() }()
	var samples []api.MetricSample
	if err := json.NewDecoder(resp.Body).Decode(&samples); err != nil {
		t.Fatalf("decode samples: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	if samples[0].Timestamp == "" || samples[0].RAMLimitMb == nil {
		t.Errorf("sample fields missing: %+v", samples[0])
	}
}

func TestLogStreamFraming(t *testing.T) {
	s, ts := newTestServer(t)
	run := demo.NewRun("deploy")
	s.AddRun(run)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/runs/"+run.ID()+"/logs/stream", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	run.Start(time.Millisecond, 3)

	// The run finishing closes the stream, so reading to EOF is bounded.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	frames := strings.Split(strings.TrimSuffix(string(body), "\n\n"), "\n\n")
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d: %q", len(frames), string(body))
	}
	for _, f := range frames {
		if !strings.HasPrefix(f, `data: {"line":"[step `) {
			t.Errorf("unexpected frame %q", f)
		}
	}
}

func TestMetricStreamFraming(t *testing.T) {
	s, ts := newTestServer(t)
	run := demo.NewRun("deploy")
	s.AddRun(run)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/runs/"+run.ID()+"/metrics/stream", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	run.Start(time.Millisecond, 2)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	frames := strings.Split(strings.TrimSuffix(string(body), "\n\n"), "\n\n")
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d: %q", len(frames), string(body))
	}
	var sample api.MetricSample
	if err := json.Unmarshal([]byte(strings.TrimPrefix(frames[0], "data: ")), &sample); err != nil {
		t.Fatalf("frame payload not a sample: %v", err)
	}
	if sample.Timestamp == "" {
		t.Errorf("sample missing timestamp: %+v", sample)
	}
}
