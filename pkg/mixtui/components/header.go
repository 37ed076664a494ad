package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/txn2/pimixer/pkg/mixtui/styles"
)

// HeaderModel displays the application name, version and device path
type HeaderModel struct {
	version string
	device  string
	width   int
}

// NewHeaderModel creates a new header model
func NewHeaderModel(version, device string) HeaderModel {
	return HeaderModel{version: version, device: device}
}

// SetWidth updates the header width
func (m *HeaderModel) SetWidth(width int) {
	m.width = width
}

// View renders the header
func (m HeaderModel) View() string {
	left := " " + styles.HeaderTitleStyle.Render("pimixer") +
		styles.HeaderVersionStyle.Render(" v"+m.version)

	right := ""
	if m.device != "" {
		right = styles.HeaderDeviceStyle.Render(m.device)
	}

	spacing := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 1
	if spacing < 1 {
		spacing = 1
	}
	return left + strings.Repeat(" ", spacing) + right
}
