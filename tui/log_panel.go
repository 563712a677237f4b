// ABOUTME: Scrollable log tab built on the bubbles viewport component.
// ABOUTME: Renders the log feed snapshot and pins the view to the newest line.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
)

// LogPanelModel renders the log view tab.
type LogPanelModel struct {
	lines    []string
	viewport viewport.Model
	width    int
	height   int
}

// NewLogPanelModel creates an empty log panel.
func NewLogPanelModel() LogPanelModel {
	return LogPanelModel{viewport: viewport.New(80, 10)}
}

// SetLines replaces the panel content with a fresh feed snapshot and scrolls
// to the bottom.
func (m *LogPanelModel) SetLines(lines []string) {
	m.lines = lines
	m.syncViewport()
}

// Len returns the number of lines currently shown.
func (m LogPanelModel) Len() int {
	return len(m.lines)
}

// SetSize sets the available dimensions and resizes the viewport.
func (m *LogPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	vpWidth := w - 2
	vpHeight := h - 3
	if vpWidth < 1 {
		vpWidth = 1
	}
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight
	m.syncViewport()
}

// ScrollUp moves the viewport up by one line.
func (m *LogPanelModel) ScrollUp() {
	m.viewport.ScrollUp(1)
}

// ScrollDown moves the viewport down by one line.
func (m *LogPanelModel) ScrollDown() {
	m.viewport.ScrollDown(1)
}

// View renders the log panel.
func (m LogPanelModel) View() string {
	var content string
	if len(m.lines) == 0 {
		content = "No log output yet"
	} else {
		content = m.viewport.View()
	}

	rendered := TitleStyle.Render("LOGS") + "\n" + content

	return BorderStyle.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(rendered)
}

func (m *LogPanelModel) syncViewport() {
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}
