package styles

import "github.com/charmbracelet/lipgloss"

// color returns a lipgloss.Color, choosing light or dark variant based on the
// current theme set by SetDarkTheme.
func color(light, dark string) lipgloss.Color {
	if isDark {
		return lipgloss.Color(dark)
	}
	return lipgloss.Color(light)
}

var isDark = true

// SetDarkTheme switches the color palette. Call this before the TUI starts.
func SetDarkTheme(dark bool) {
	isDark = dark
	applyTheme()
}

// IsDarkTheme returns the current theme setting.
func IsDarkTheme() bool {
	return isDark
}

// BarColor is the solid fill used by the channel bars
func BarColor() string {
	return string(color("28", "42"))
}

// MutedBarColor is the fill used for a muted channel
func MutedBarColor() string {
	return string(color("243", "240"))
}

func applyTheme() {
	colorYellow := color("136", "226")
	colorBlue := color("27", "39")
	colorGreen := color("28", "42")
	colorRed := color("160", "196")
	colorOrange := color("166", "208")
	colorGray := color("243", "240")
	colorWhite := color("16", "255")
	colorCyan := color("30", "51")
	colorSelectedBg := color("254", "237")

	// --- header ---
	HeaderTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	HeaderVersionStyle = lipgloss.NewStyle().Foreground(colorWhite)
	HeaderDeviceStyle = lipgloss.NewStyle().Foreground(colorCyan)

	// --- bars ---
	BarLabelStyle = lipgloss.NewStyle().Foreground(colorWhite).Width(8)
	BarSelectedLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(colorYellow).Width(8)
	BarValueStyle = lipgloss.NewStyle().Foreground(colorGray).Width(6).Align(lipgloss.Right)
	BarMutedStyle = lipgloss.NewStyle().Foreground(colorOrange)

	// --- log levels ---
	LogErrorStyle = lipgloss.NewStyle().Foreground(colorRed)
	LogWarnStyle = lipgloss.NewStyle().Foreground(colorYellow)
	LogInfoStyle = lipgloss.NewStyle().Foreground(colorGreen)
	LogDebugStyle = lipgloss.NewStyle().Foreground(colorBlue)
	LogTimestampStyle = lipgloss.NewStyle().Foreground(colorGray)
	DeviceLineStyle = lipgloss.NewStyle().Foreground(colorCyan)

	// --- table ---
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	TableSelectedStyle = lipgloss.NewStyle().Background(colorSelectedBg).Foreground(colorWhite)
	TableMutedStyle = lipgloss.NewStyle().Foreground(colorOrange)

	// --- status bar ---
	StatusBarStyle = lipgloss.NewStyle().Foreground(colorWhite)
	StatusUpStyle = lipgloss.NewStyle().Foreground(colorGreen)
	StatusDownStyle = lipgloss.NewStyle().Foreground(colorRed)
	StatusBoostedStyle = lipgloss.NewStyle().Foreground(colorYellow)
	StatusBarHelpStyle = lipgloss.NewStyle().Foreground(colorGray)

	// --- section ---
	SectionTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
}

var (
	HeaderTitleStyle   lipgloss.Style
	HeaderVersionStyle lipgloss.Style
	HeaderDeviceStyle  lipgloss.Style

	BarLabelStyle         lipgloss.Style
	BarSelectedLabelStyle lipgloss.Style
	BarValueStyle         lipgloss.Style
	BarMutedStyle         lipgloss.Style

	LogErrorStyle     lipgloss.Style
	LogWarnStyle      lipgloss.Style
	LogInfoStyle      lipgloss.Style
	LogDebugStyle     lipgloss.Style
	LogTimestampStyle lipgloss.Style
	DeviceLineStyle   lipgloss.Style

	TableHeaderStyle   lipgloss.Style
	TableSelectedStyle lipgloss.Style
	TableMutedStyle    lipgloss.Style

	StatusBarStyle     lipgloss.Style
	StatusUpStyle      lipgloss.Style
	StatusDownStyle    lipgloss.Style
	StatusBoostedStyle lipgloss.Style
	StatusBarHelpStyle lipgloss.Style

	SectionTitleStyle lipgloss.Style
)

func init() {
	applyTheme()
}
