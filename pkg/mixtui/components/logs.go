package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"github.com/txn2/pimixer/pkg/mixtui/styles"
)

const maxLogLines = 1000

// LogEntry is either a line received from the device or a log message
type LogEntry struct {
	Time    time.Time
	Device  bool
	Level   logrus.Level
	Message string
}

// LogsModel displays device lines and log output in a scrollable viewport
type LogsModel struct {
	viewport viewport.Model
	entries  []LogEntry
	width    int
	height   int
	ready    bool
}

// NewLogsModel creates a new logs model
func NewLogsModel() LogsModel {
	return LogsModel{
		entries: make([]LogEntry, 0, maxLogLines),
	}
}

// Update forwards scroll input to the viewport
func (m LogsModel) Update(msg tea.Msg) (LogsModel, tea.Cmd) {
	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// AppendDeviceLine adds a line received from the device
func (m *LogsModel) AppendDeviceLine(line string, t time.Time) {
	m.append(LogEntry{Time: t, Device: true, Message: line})
}

// AppendLog adds a log entry
func (m *LogsModel) AppendLog(level logrus.Level, message string, t time.Time) {
	m.append(LogEntry{Time: t, Level: level, Message: message})
}

func (m *LogsModel) append(e LogEntry) {
	m.entries = append(m.entries, e)
	if len(m.entries) > maxLogLines {
		m.entries = m.entries[len(m.entries)-maxLogLines:]
	}
	m.updateContent()
	if m.ready {
		m.viewport.GotoBottom()
	}
}

// Entries returns the retained entries, oldest first
func (m *LogsModel) Entries() []LogEntry {
	return m.entries
}

func (m *LogsModel) updateContent() {
	if !m.ready {
		return
	}
	var sb strings.Builder
	for _, e := range m.entries {
		sb.WriteString(formatEntry(e))
		sb.WriteString("\n")
	}
	m.viewport.SetContent(sb.String())
}

func formatEntry(e LogEntry) string {
	timestamp := styles.LogTimestampStyle.Render(e.Time.Format("[15:04:05]"))
	message := strings.TrimRight(e.Message, "\n\r")

	if e.Device {
		return fmt.Sprintf("%s%s %s", timestamp, styles.DeviceLineStyle.Render("[DEV]"), message)
	}

	var levelStyle lipgloss.Style
	switch e.Level {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		levelStyle = styles.LogErrorStyle
	case logrus.WarnLevel:
		levelStyle = styles.LogWarnStyle
	case logrus.DebugLevel, logrus.TraceLevel:
		levelStyle = styles.LogDebugStyle
	default:
		levelStyle = styles.LogInfoStyle
	}
	level := strings.ToUpper(e.Level.String())
	if level == "WARNING" {
		level = "WARN"
	}
	return fmt.Sprintf("%s%s %s", timestamp, levelStyle.Render("["+level+"]"), message)
}

// View renders the viewport
func (m LogsModel) View() string {
	if !m.ready {
		return "Loading..."
	}
	return m.viewport.View()
}

// SetSize updates the viewport dimensions
func (m *LogsModel) SetSize(width, height int) {
	m.width = width
	m.height = height

	if !m.ready {
		m.viewport = viewport.New(width, height)
		m.viewport.Style = lipgloss.NewStyle()
		m.viewport.MouseWheelEnabled = true
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = height
	}
	m.updateContent()
	m.viewport.GotoBottom()
}
