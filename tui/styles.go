// ABOUTME: Defines lipgloss style constants for the watch layout, run states, and the
// ABOUTME: connection indicator, with mapping helpers from domain states to styles.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/runboard/runboard/api"
	"github.com/runboard/runboard/stream"
)

var (
	// Panel borders
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))

	// Title styling
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	// Tab headers
	ActiveTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Underline(true)
	InactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))

	// Run lifecycle colors
	PendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	RunningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	SuccessStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	FailedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	CancelledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	// Connection indicator
	ConnectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	ReconnectingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	DisconnectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	// Metric rendering
	MetricLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	MetricWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)
	StatusErrorStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("236")).
				Foreground(lipgloss.Color("196")).
				Padding(0, 1)
)

// StyleForRunStatus maps a run lifecycle state to its display style.
func StyleForRunStatus(status api.RunStatus) lipgloss.Style {
	switch status {
	case api.RunPending:
		return PendingStyle
	case api.RunRunning:
		return RunningStyle
	case api.RunSuccess:
		return SuccessStyle
	case api.RunFailed:
		return FailedStyle
	case api.RunCancelled:
		return CancelledStyle
	default:
		return PendingStyle
	}
}

// StyleForConnection maps a connection state to its indicator style.
func StyleForConnection(status stream.Status) lipgloss.Style {
	switch status {
	case stream.StatusConnected:
		return ConnectedStyle
	case stream.StatusReconnecting:
		return ReconnectingStyle
	default:
		return DisconnectedStyle
	}
}
