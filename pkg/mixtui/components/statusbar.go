package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/txn2/pimixer/pkg/mixbright"
	"github.com/txn2/pimixer/pkg/mixtui/styles"
)

// Status is what the status bar summarizes
type Status struct {
	Broadcasting bool
	Brightness   mixbright.State
	Frame        string
	Message      string
}

// StatusBarModel displays link state, brightness and key hints
type StatusBarModel struct {
	status Status
	width  int
}

// NewStatusBarModel creates a new status bar model
func NewStatusBarModel() StatusBarModel {
	return StatusBarModel{}
}

// Update replaces the displayed status
func (m *StatusBarModel) Update(s Status) {
	m.status = s
}

// Status returns the displayed status
func (m *StatusBarModel) Status() Status {
	return m.status
}

// SetWidth updates the status bar width
func (m *StatusBarModel) SetWidth(width int) {
	m.width = width
}

// View renders the status bar
func (m StatusBarModel) View() string {
	s := m.status

	link := styles.StatusUpStyle.Render("Serial: up")
	if !s.Broadcasting {
		link = styles.StatusDownStyle.Render("Serial: down")
	}

	light := "Backlight: " + s.Brightness.String()
	if s.Brightness == mixbright.Boosted {
		light = styles.StatusBoostedStyle.Render(light)
	}

	left := fmt.Sprintf(" %s | %s | %s", link, light, s.Frame)
	if s.Message != "" {
		left += " | " + s.Message
	}

	help := styles.StatusBarHelpStyle.Render("←/→ select  ↑/↓ ±16  PgUp/PgDn ±128  m mute  q quit")

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(help) - 2
	if padding < 1 {
		padding = 1
	}
	spacer := lipgloss.NewStyle().Width(padding).Render("")
	return styles.StatusBarStyle.Render(left + spacer + help + " ")
}
