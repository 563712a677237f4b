// ABOUTME: Top-level Bubble Tea WatchModel for following one run: log and metrics tabs,
// ABOUTME: driven by a tick loop that reconciles the stream coordinator and polls feeds.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/runboard/runboard/api"
	"github.com/runboard/runboard/stream"
)

// ViewTab identifies which tab is visible. Only the visible tab holds a live
// subscription; switching away tears the other one down.
type ViewTab int

const (
	TabLogs ViewTab = iota
	TabMetrics
)

const (
	tickInterval       = 100 * time.Millisecond
	runRefreshInterval = 2 * time.Second
)

// WatchModel is the top-level Bubble Tea model for the watch command.
type WatchModel struct {
	ctx     context.Context
	fetcher RunFetcher
	coord   *stream.Coordinator
	runID   string

	run api.Run
	tab ViewTab

	logPanel     LogPanelModel
	metricsPanel MetricsPanelModel
	statusBar    StatusBarModel

	logVersion    uint64
	metricVersion uint64

	width  int
	height int
}

// NewWatchModel creates a WatchModel following the given run. The coordinator
// must be dedicated to this model; the model is its only Apply caller.
func NewWatchModel(ctx context.Context, fetcher RunFetcher, coord *stream.Coordinator, runID string) WatchModel {
	return WatchModel{
		ctx:          ctx,
		fetcher:      fetcher,
		coord:        coord,
		runID:        runID,
		logPanel:     NewLogPanelModel(),
		metricsPanel: NewMetricsPanelModel(),
		statusBar:    NewStatusBarModel(runID),
	}
}

// Init implements tea.Model: fetch the run once and start the tick loop.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(
		FetchRunCmd(m.ctx, m.fetcher, m.runID, 0),
		TickCmd(tickInterval),
	)
}

// Update implements tea.Model.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case RunInfoMsg:
		return m.handleRunInfo(msg)

	case TickMsg:
		return m.handleTick()

	case StreamErrorMsg:
		m.statusBar.SetError(msg.Message)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, nil
}

// handleRunInfo installs the refreshed run snapshot and schedules the next
// refresh while the run is still active.
func (m WatchModel) handleRunInfo(msg RunInfoMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.statusBar.SetError(msg.Err.Error())
		return m, FetchRunCmd(m.ctx, m.fetcher, m.runID, runRefreshInterval)
	}

	m.run = *msg.Run
	m.statusBar.SetRun(m.run)
	if m.run.Status.IsTerminal() {
		return m, nil
	}
	return m, FetchRunCmd(m.ctx, m.fetcher, m.runID, runRefreshInterval)
}

// handleTick reconciles the coordinator against the current view, pulls feed
// snapshots when their version moved, and re-arms the tick.
func (m WatchModel) handleTick() (tea.Model, tea.Cmd) {
	m.coord.Apply(m.ctx, stream.State{
		RunID:            m.runID,
		RunStatus:        m.run.Status,
		LogViewActive:    m.tab == TabLogs,
		MetricViewActive: m.tab == TabMetrics,
	})

	logFeed := m.coord.Feed(stream.KindLog)
	if v := logFeed.Version(); v != m.logVersion {
		m.logVersion = v
		m.logPanel.SetLines(logFeed.Lines())
	}
	metricFeed := m.coord.Feed(stream.KindMetric)
	if v := metricFeed.Version(); v != m.metricVersion {
		m.metricVersion = v
		m.metricsPanel.SetSamples(metricFeed.Samples())
	}

	m.statusBar.SetConnection(m.coord.Status(m.activeKind()))
	m.statusBar.AdvanceSpinner()

	return m, TickCmd(tickInterval)
}

func (m WatchModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab":
		if m.tab == TabLogs {
			m.tab = TabMetrics
		} else {
			m.tab = TabLogs
		}
		return m, nil
	case "l":
		m.tab = TabLogs
		return m, nil
	case "m":
		m.tab = TabMetrics
		return m, nil
	case "up", "k":
		m.scrollActive(-1)
		return m, nil
	case "down", "j":
		m.scrollActive(1)
		return m, nil
	}
	return m, nil
}

func (m *WatchModel) scrollActive(delta int) {
	if m.tab == TabLogs {
		if delta < 0 {
			m.logPanel.ScrollUp()
		} else {
			m.logPanel.ScrollDown()
		}
	}
}

func (m WatchModel) activeKind() stream.Kind {
	if m.tab == TabMetrics {
		return stream.KindMetric
	}
	return stream.KindLog
}

// View implements tea.Model.
func (m WatchModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	if m.width < 40 || m.height < 8 {
		return fmt.Sprintf("Terminal too small (%dx%d). Minimum: 40x8.", m.width, m.height)
	}

	tabs := m.tabsView()

	panelHeight := m.height - 2 // tabs line + status bar
	var panel string
	if m.tab == TabLogs {
		m.logPanel.SetSize(m.width, panelHeight)
		panel = m.logPanel.View()
	} else {
		m.metricsPanel.SetSize(m.width, panelHeight)
		panel = m.metricsPanel.View()
	}

	m.statusBar.SetWidth(m.width)

	var b strings.Builder
	b.WriteString(tabs)
	b.WriteString("\n")
	b.WriteString(panel)
	b.WriteString("\n")
	b.WriteString(m.statusBar.View())
	return b.String()
}

func (m WatchModel) tabsView() string {
	logTab := InactiveTabStyle.Render("[l] logs")
	metricTab := InactiveTabStyle.Render("[m] metrics")
	if m.tab == TabLogs {
		logTab = ActiveTabStyle.Render("[l] logs")
	} else {
		metricTab = ActiveTabStyle.Render("[m] metrics")
	}
	return logTab + "  " + metricTab
}
