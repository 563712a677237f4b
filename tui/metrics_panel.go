// ABOUTME: Metrics tab rendering the sample feed as a table of CPU and RAM readings
// ABOUTME: with a text gauge for CPU and soft-limit highlighting.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"

	"github.com/runboard/runboard/api"
)

const cpuGaugeWidth = 20

// MetricsPanelModel renders the metrics view tab.
type MetricsPanelModel struct {
	samples  []api.MetricSample
	viewport viewport.Model
	width    int
	height   int
}

// NewMetricsPanelModel creates an empty metrics panel.
func NewMetricsPanelModel() MetricsPanelModel {
	return MetricsPanelModel{viewport: viewport.New(80, 10)}
}

// SetSamples replaces the panel content with a fresh feed snapshot.
func (m *MetricsPanelModel) SetSamples(samples []api.MetricSample) {
	m.samples = samples
	m.syncViewport()
}

// Len returns the number of samples currently shown.
func (m MetricsPanelModel) Len() int {
	return len(m.samples)
}

// SetSize sets the available dimensions and resizes the viewport.
func (m *MetricsPanelModel) SetSize(w, h int) {
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

// View renders the metrics panel.
func (m MetricsPanelModel) View() string {
	var content string
	if len(m.samples) == 0 {
		content = "No samples yet"
	} else {
		content = m.viewport.View()
	}

	rendered := TitleStyle.Render("METRICS") + "\n" + content

	return BorderStyle.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(rendered)
}

func (m *MetricsPanelModel) syncViewport() {
	var rows []string
	for _, s := range m.samples {
		rows = append(rows, formatSample(s))
	}
	m.viewport.SetContent(strings.Join(rows, "\n"))
	m.viewport.GotoBottom()
}

// formatSample renders one reading as "<ts>  [gauge] cpu%  ram/limit MB".
func formatSample(s api.MetricSample) string {
	ts := MetricLabelStyle.Render(s.Timestamp)

	cpu := fmt.Sprintf("%s %5.1f%%", cpuGauge(s.CPUPercent), s.CPUPercent)

	ram := fmt.Sprintf("%.0f MB", s.RAMMb)
	if s.RAMLimitMb != nil {
		ram = fmt.Sprintf("%.0f/%.0f MB", s.RAMMb, *s.RAMLimitMb)
	}
	if s.SoftLimitExceeded {
		ram = MetricWarnStyle.Render(ram + " !")
	}

	return fmt.Sprintf("%s  %s  %s", ts, cpu, ram)
}

// cpuGauge draws a fixed-width bar for a 0-100 percentage. Values outside the
// range are clamped rather than rejected; the stream layer already accepted
// the sample.
func cpuGauge(pct float64) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * cpuGaugeWidth)
	return "[" + strings.Repeat("|", filled) + strings.Repeat(" ", cpuGaugeWidth-filled) + "]"
}
