// ABOUTME: Tests for the RunStreamCoordinator decision table: session lifecycle per view and
// ABOUTME: run state, terminal-state handoff to a single historical fetch, and run identity resets.
package stream

import (
	"context"
	"io"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/runboard/runboard/api"
)

// fakeBackend counts calls and serves blocking streams plus canned history.
type fakeBackend struct {
	mu              sync.Mutex
	logOpens        int
	metricOpens     int
	logTails        int
	metricHistories int

	tailLines []string
	history   []api.MetricSample
}

func (b *fakeBackend) OpenLogStream(ctx context.Context, runID string) (io.ReadCloser, error) {
	b.mu.Lock()
	b.logOpens++
	b.mu.Unlock()
	return &ctxBody{ctx: ctx}, nil
}

func (b *fakeBackend) OpenMetricStream(ctx context.Context, runID string) (io.ReadCloser, error) {
	b.mu.Lock()
	b.metricOpens++
	b.mu.Unlock()
	return &ctxBody{ctx: ctx}, nil
}

func (b *fakeBackend) LogTail(ctx context.Context, runID string, n int) ([]string, error) {
	b.mu.Lock()
	b.logTails++
	b.mu.Unlock()
	return b.tailLines, nil
}

func (b *fakeBackend) MetricHistory(ctx context.Context, runID string) ([]api.MetricSample, error) {
	b.mu.Lock()
	b.metricHistories++
	b.mu.Unlock()
	return b.history, nil
}

func (b *fakeBackend) counts() (logOpens, metricOpens, logTails, metricHistories int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logOpens, b.metricOpens, b.logTails, b.metricHistories
}

func TestCoordinator_SingleSessionPerKind(t *testing.T) {
	backend := &fakeBackend{}
	c := NewCoordinator(backend, withSessionTuning(fastPolicy, 0))
	defer c.Close()

	st := State{RunID: "run-1", RunStatus: api.RunRunning, LogViewActive: true}
	c.Apply(context.Background(), st)
	c.Apply(context.Background(), st)
	c.Apply(context.Background(), st)

	waitFor(t, time.Second, func() bool {
		opens, _, _, _ := backend.counts()
		return opens == 1
	})
	time.Sleep(20 * time.Millisecond)

	logOpens, metricOpens, _, _ := backend.counts()
	if logOpens != 1 {
		t.Errorf("expected one log stream, got %d", logOpens)
	}
	if metricOpens != 0 {
		t.Errorf("inactive metric view must not stream, got %d opens", metricOpens)
	}
	if c.Status(KindLog) != StatusConnected {
		t.Errorf("expected connected, got %s", c.Status(KindLog))
	}
}

func TestCoordinator_TerminalHandoff(t *testing.T) {
	backend := &fakeBackend{tailLines: []string{"first", "last"}}
	c := NewCoordinator(backend, withSessionTuning(fastPolicy, 0))
	defer c.Close()

	c.Apply(context.Background(), State{RunID: "run-1", RunStatus: api.RunRunning, LogViewActive: true})
	waitFor(t, time.Second, func() bool {
		opens, _, _, _ := backend.counts()
		return opens == 1
	})

	// Run completes while the stream is live: the session stops and exactly
	// one tail fetch replaces it.
	done := State{RunID: "run-1", RunStatus: api.RunSuccess, LogViewActive: true}
	c.Apply(context.Background(), done)
	c.Apply(context.Background(), done)

	logOpens, _, logTails, _ := backend.counts()
	if logTails != 1 {
		t.Errorf("expected exactly one historical fetch, got %d", logTails)
	}
	if logOpens != 1 {
		t.Errorf("expected zero further stream attempts, got %d opens", logOpens)
	}
	if got := c.Feed(KindLog).Lines(); !reflect.DeepEqual(got, []string{"first", "last"}) {
		t.Errorf("expected tail installed, got %v", got)
	}
	if c.Status(KindLog) != StatusDisconnected {
		t.Errorf("expected disconnected after handoff, got %s", c.Status(KindLog))
	}
}

func TestCoordinator_ViewDeactivationStopsSession(t *testing.T) {
	backend := &fakeBackend{}
	c := NewCoordinator(backend, withSessionTuning(fastPolicy, 0))
	defer c.Close()

	c.Apply(context.Background(), State{RunID: "run-1", RunStatus: api.RunRunning, LogViewActive: true})
	waitFor(t, time.Second, func() bool {
		opens, _, _, _ := backend.counts()
		return opens == 1
	})

	c.Apply(context.Background(), State{RunID: "run-1", RunStatus: api.RunRunning, LogViewActive: false})

	if c.Status(KindLog) != StatusDisconnected {
		t.Errorf("expected no session after tab switch, got %s", c.Status(KindLog))
	}
	time.Sleep(20 * time.Millisecond)
	logOpens, _, logTails, _ := backend.counts()
	if logOpens != 1 {
		t.Errorf("expected no reconnects after stop, got %d opens", logOpens)
	}
	if logTails != 0 {
		t.Errorf("active run must not trigger historical fetch, got %d", logTails)
	}
}

func TestCoordinator_RunIdentityChangeRebuildsState(t *testing.T) {
	backend := &fakeBackend{}
	c := NewCoordinator(backend, withSessionTuning(fastPolicy, 0))
	defer c.Close()

	c.Apply(context.Background(), State{RunID: "run-1", RunStatus: api.RunRunning, LogViewActive: true})
	waitFor(t, time.Second, func() bool {
		opens, _, _, _ := backend.counts()
		return opens == 1
	})

	oldFeed := c.Feed(KindLog)
	oldFeed.AppendLine("stale")

	c.Apply(context.Background(), State{RunID: "run-2", RunStatus: api.RunRunning, LogViewActive: true})
	waitFor(t, time.Second, func() bool {
		opens, _, _, _ := backend.counts()
		return opens == 2
	})

	newFeed := c.Feed(KindLog)
	if newFeed == oldFeed {
		t.Fatal("expected a fresh feed for the new run")
	}
	if got := newFeed.Lines(); len(got) != 0 {
		t.Errorf("expected empty feed for new run, got %v", got)
	}
}

func TestCoordinator_TerminalRunFetchesBothKinds(t *testing.T) {
	backend := &fakeBackend{
		tailLines: []string{"done"},
		history:   []api.MetricSample{{Timestamp: "2026-08-26T10:00:00Z", CPUPercent: 5, RAMMb: 256}},
	}
	c := NewCoordinator(backend)
	defer c.Close()

	c.Apply(context.Background(), State{
		RunID:            "run-1",
		RunStatus:        api.RunFailed,
		LogViewActive:    true,
		MetricViewActive: true,
	})

	logOpens, metricOpens, logTails, metricHistories := backend.counts()
	if logOpens != 0 || metricOpens != 0 {
		t.Errorf("terminal run must not stream, got %d/%d opens", logOpens, metricOpens)
	}
	if logTails != 1 || metricHistories != 1 {
		t.Errorf("expected one fetch per kind, got tails=%d histories=%d", logTails, metricHistories)
	}
	if got := c.Feed(KindLog).Lines(); !reflect.DeepEqual(got, []string{"done"}) {
		t.Errorf("log tail not installed: %v", got)
	}
	if got := c.Feed(KindMetric).Samples(); len(got) != 1 || got[0].RAMMb != 256 {
		t.Errorf("metric history not installed: %v", got)
	}
}
