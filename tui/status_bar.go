// ABOUTME: Single-line status bar: pipeline name, run id, lifecycle state, connection
// ABOUTME: indicator with a spinner while reconnecting, and the most recent stream error.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"github.com/runboard/runboard/api"
	"github.com/runboard/runboard/stream"
)

// StatusBarModel renders the bottom status line.
type StatusBarModel struct {
	run        api.Run
	connection stream.Status
	lastError  string
	spinner    spinner.Model
	width      int
}

// NewStatusBarModel creates a status bar for the given run id.
func NewStatusBarModel(runID string) StatusBarModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ReconnectingStyle
	return StatusBarModel{
		run:        api.Run{ID: runID},
		connection: stream.StatusDisconnected,
		spinner:    sp,
	}
}

// SetRun updates the displayed run snapshot.
func (m *StatusBarModel) SetRun(run api.Run) {
	m.run = run
}

// SetConnection updates the connection indicator.
func (m *StatusBarModel) SetConnection(status stream.Status) {
	m.connection = status
}

// SetError records the most recent server-reported stream error. An empty
// string clears it.
func (m *StatusBarModel) SetError(msg string) {
	m.lastError = msg
}

// SetWidth sets the render width.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// AdvanceSpinner steps the reconnect spinner one frame.
func (m *StatusBarModel) AdvanceSpinner() {
	m.spinner, _ = m.spinner.Update(m.spinner.Tick())
}

// View renders the status line.
func (m StatusBarModel) View() string {
	var parts []string

	name := m.run.Pipeline
	if name == "" {
		name = "run"
	}
	parts = append(parts, fmt.Sprintf("%s %s", name, shortID(m.run.ID)))

	if m.run.Status != "" {
		parts = append(parts, StyleForRunStatus(m.run.Status).Render(string(m.run.Status)))
	}

	parts = append(parts, m.connectionView())

	if m.lastError != "" {
		parts = append(parts, StatusErrorStyle.Render("stream: "+m.lastError))
	}

	line := strings.Join(parts, "  ")
	return StatusBarStyle.Width(maxInt(m.width, lipgloss.Width(line))).Render(line)
}

func (m StatusBarModel) connectionView() string {
	switch m.connection {
	case stream.StatusConnected:
		return ConnectedStyle.Render("● connected")
	case stream.StatusReconnecting:
		return ReconnectingStyle.Render(m.spinner.View() + "reconnecting")
	default:
		return DisconnectedStyle.Render("○ disconnected")
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
