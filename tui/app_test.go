// ABOUTME: Tests for the watch model: tab switching, tick-driven feed polling, run refresh
// ABOUTME: scheduling, and status bar rendering of run and connection state.
package tui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/runboard/runboard/api"
	"github.com/runboard/runboard/stream"
)

// stubBackend keeps the coordinator inert: every stream open fails and every
// fetch is empty, so tests drive feeds by hand.
type stubBackend struct{}

func (stubBackend) LogTail(context.Context, string, int) ([]string, error) { return nil, nil }
func (stubBackend) MetricHistory(context.Context, string) ([]api.MetricSample, error) {
	return nil, nil
}
func (stubBackend) OpenLogStream(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("no stream")
}
func (stubBackend) OpenMetricStream(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("no stream")
}

type stubFetcher struct {
	run *api.Run
	err error
}

func (f stubFetcher) Run(context.Context, string) (*api.Run, error) {
	return f.run, f.err
}

func newWatchModel(t *testing.T) WatchModel {
	t.Helper()
	coord := stream.NewCoordinator(stubBackend{})
	t.Cleanup(coord.Close)
	return NewWatchModel(context.Background(), stubFetcher{}, coord, "run-1")
}

func TestWatchModel_TabSwitching(t *testing.T) {
	m := newWatchModel(t)
	if m.activeKind() != stream.KindLog {
		t.Fatalf("expected log tab initially")
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(WatchModel)
	if m.activeKind() != stream.KindMetric {
		t.Errorf("tab key must switch to metrics")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	m = next.(WatchModel)
	if m.activeKind() != stream.KindLog {
		t.Errorf("l key must switch to logs")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}})
	m = next.(WatchModel)
	if m.activeKind() != stream.KindMetric {
		t.Errorf("m key must switch to metrics")
	}
}

func TestWatchModel_QuitKeys(t *testing.T) {
	m := newWatchModel(t)
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := m.Update(key)
		if cmd == nil {
			t.Fatalf("key %s must produce a quit command", key)
		}
		if msg := cmd(); msg != tea.Quit() {
			t.Errorf("key %s: expected quit, got %T", key, msg)
		}
	}
}

func TestWatchModel_TickPullsFeedSnapshots(t *testing.T) {
	m := newWatchModel(t)

	feed := m.coord.Feed(stream.KindLog)
	feed.AppendLine("hello")
	feed.AppendLine("world")

	next, cmd := m.Update(TickMsg{})
	m = next.(WatchModel)
	if cmd == nil {
		t.Fatalf("tick must re-arm itself")
	}
	if m.logPanel.Len() != 2 {
		t.Errorf("expected 2 lines pulled into the panel, got %d", m.logPanel.Len())
	}

	version := m.logVersion
	next, _ = m.Update(TickMsg{})
	m = next.(WatchModel)
	if m.logVersion != version {
		t.Errorf("unchanged feed must not advance the tracked version")
	}
}

func TestWatchModel_RunRefreshStopsOnTerminal(t *testing.T) {
	m := newWatchModel(t)

	next, cmd := m.Update(RunInfoMsg{Run: &api.Run{ID: "run-1", Status: api.RunRunning}})
	m = next.(WatchModel)
	if cmd == nil {
		t.Errorf("active run must schedule the next refresh")
	}

	next, cmd = m.Update(RunInfoMsg{Run: &api.Run{ID: "run-1", Status: api.RunSuccess}})
	m = next.(WatchModel)
	if cmd != nil {
		t.Errorf("terminal run must not schedule further refreshes")
	}
	if m.run.Status != api.RunSuccess {
		t.Errorf("run snapshot not installed: %+v", m.run)
	}
}

func TestWatchModel_FetchErrorKeepsRetrying(t *testing.T) {
	m := newWatchModel(t)

	next, cmd := m.Update(RunInfoMsg{Err: errors.New("connection refused")})
	m = next.(WatchModel)
	if cmd == nil {
		t.Errorf("fetch failure must schedule a retry")
	}
	if m.statusBar.lastError == "" {
		t.Errorf("fetch failure must surface in the status bar")
	}
}

func TestWatchModel_ViewRendersTabsAndStatus(t *testing.T) {
	m := newWatchModel(t)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(WatchModel)
	next, _ = m.Update(RunInfoMsg{Run: &api.Run{ID: "run-1", Pipeline: "deploy", Status: api.RunRunning}})
	m = next.(WatchModel)

	view := m.View()
	if !strings.Contains(view, "logs") || !strings.Contains(view, "metrics") {
		t.Errorf("view missing tab headers:\n%s", view)
	}
	if !strings.Contains(view, "deploy") {
		t.Errorf("view missing pipeline name:\n%s", view)
	}
	if !strings.Contains(view, "RUNNING") {
		t.Errorf("view missing run status:\n%s", view)
	}
}

func TestWatchModel_TooSmallGuard(t *testing.T) {
	m := newWatchModel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 5})
	m = next.(WatchModel)
	if !strings.Contains(m.View(), "Terminal too small") {
		t.Errorf("expected the minimum size guard")
	}
}

func TestWatchModel_StreamErrorSurfaced(t *testing.T) {
	m := newWatchModel(t)
	next, _ := m.Update(StreamErrorMsg{Kind: stream.KindLog, Message: "worker lost"})
	m = next.(WatchModel)
	if m.statusBar.lastError != "worker lost" {
		t.Errorf("stream error not recorded, got %q", m.statusBar.lastError)
	}
}
