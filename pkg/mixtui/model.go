package mixtui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/pimixer/pkg/mixevents"
	"github.com/txn2/pimixer/pkg/mixloop"
	"github.com/txn2/pimixer/pkg/mixstate"
	"github.com/txn2/pimixer/pkg/mixtui/components"
	"github.com/txn2/pimixer/pkg/mixtui/styles"
)

const (
	// SmallStep and LargeStep are the arrow and page key increments
	SmallStep = 16
	LargeStep = 128
)

// RootModel is the main bubbletea model
type RootModel struct {
	mixer Mixer

	header    components.HeaderModel
	bars      components.BarsModel
	channels  components.ChannelsModel
	logs      components.LogsModel
	statusBar components.StatusBarModel

	selected int
	message  string
	quitting bool

	width      int
	height     int
	barsStartY int // Y of the first bar, for click selection
	logsHeight int

	eventCh <-chan mixevents.Event
	logCh   <-chan LogEntryMsg
	stopCh  <-chan struct{}
}

// Init initializes the model
func (m *RootModel) Init() tea.Cmd {
	return tea.Batch(
		ListenEvents(m.eventCh),
		ListenLogs(m.logCh),
		ListenShutdown(m.stopCh),
		TickRefresh(),
		SendLog(log.InfoLevel, "pimixer TUI started. Press q to quit."),
	)
}

// Update handles messages
func (m *RootModel) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	// Panic recovery to prevent TUI crash from leaving terminal in broken state
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("TUI Update panic recovered: %v", r)
			model = m
			cmd = nil
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateSizes()
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	case MixerEventMsg:
		m.handleMixerEvent(msg.Event)
		return m, ListenEvents(m.eventCh)
	case LogEntryMsg:
		m.logs.AppendLog(msg.Level, msg.Message, msg.Time)
		return m, ListenLogs(m.logCh)
	case RefreshMsg:
		m.refresh()
		return m, TickRefresh()
	case ShutdownMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m *RootModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	logsContent := lipgloss.NewStyle().
		Height(m.logsHeight).
		Render(m.logs.View())

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header.View(),
		"",
		styles.SectionTitleStyle.Render(" Channels"),
		m.bars.View(),
		m.channels.View(),
		styles.SectionTitleStyle.Render(" Device"),
		logsContent,
		m.statusBar.View(),
	)
}

// updateSizes recalculates component sizes
func (m *RootModel) updateSizes() {
	width := m.width
	if width < 40 {
		width = 40
	}

	m.header.SetWidth(width)
	m.bars.SetWidth(width)
	m.channels.SetWidth(width)
	m.statusBar.SetWidth(width)

	headerHeight := lipgloss.Height(m.header.View())
	// header, blank line, section title
	m.barsStartY = headerHeight + 2

	fixed := m.barsStartY + m.bars.Height() +
		lipgloss.Height(m.channels.View()) +
		1 + // device title
		lipgloss.Height(m.statusBar.View())

	m.logsHeight = m.height - fixed
	if m.logsHeight < 3 {
		m.logsHeight = 3
	}
	m.logs.SetSize(width, m.logsHeight)
}

// refresh re-reads the published channel state
func (m *RootModel) refresh() {
	if m.mixer == nil {
		return
	}
	chs := m.mixer.Channels()
	m.bars.SetChannels(chs)
	m.channels.SetChannels(chs)
	m.channels.Select(m.selected)
	m.statusBar.Update(components.Status{
		Broadcasting: m.mixer.Broadcasting(),
		Brightness:   m.mixer.Brightness(),
		Frame:        m.mixer.Snapshot().String(),
		Message:      m.message,
	})
}

func (m *RootModel) selectChannel(id int) {
	if !mixstate.ValidID(id) {
		return
	}
	m.selected = id
	m.bars.Select(id)
	m.channels.Select(id)
}

// Selected returns the channel the keys act on
func (m *RootModel) Selected() int {
	return m.selected
}

func (m *RootModel) submit(op mixloop.Op, value int) {
	if m.mixer == nil {
		return
	}
	err := m.mixer.Submit(mixloop.Command{Op: op, ID: m.selected, Value: value})
	if err != nil {
		m.message = err.Error()
		log.Warnf("Channel %d: %s", m.selected, err)
	} else {
		m.message = ""
	}
}

// handleKeyMsg handles keyboard input
func (m *RootModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "left", "h":
		m.selectChannel((m.selected + mixstate.NumChannels - 1) % mixstate.NumChannels)
	case "right", "l":
		m.selectChannel((m.selected + 1) % mixstate.NumChannels)
	case "up", "k":
		m.submit(mixloop.OpAdjust, SmallStep)
	case "down", "j":
		m.submit(mixloop.OpAdjust, -SmallStep)
	case "pgup":
		m.submit(mixloop.OpAdjust, LargeStep)
	case "pgdown":
		m.submit(mixloop.OpAdjust, -LargeStep)
	case "m":
		m.submit(mixloop.OpToggleMute, 0)
	default:
		return m, nil
	}
	m.refresh()
	return m, nil
}

// handleMouseMsg turns every press into a touch; a press on a bar also
// selects it. The wheel scrolls the device log.
func (m *RootModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown {
		var cmd tea.Cmd
		m.logs, cmd = m.logs.Update(msg)
		return m, cmd
	}

	if msg.Action != tea.MouseActionPress {
		return m, nil
	}

	if m.mixer != nil {
		if err := m.mixer.Touch(); err != nil {
			log.Debugf("Touch dropped: %s", err)
		}
	}

	row := msg.Y - m.barsStartY
	if row >= 0 && row < m.bars.Height() {
		m.selectChannel(row)
	}
	return m, nil
}

func (m *RootModel) handleMixerEvent(e mixevents.Event) {
	switch e.Type {
	case mixevents.DeviceLine:
		m.logs.AppendDeviceLine(e.Line, e.Timestamp)
	case mixevents.BridgeStopped:
		if e.Error != nil {
			m.message = fmt.Sprintf("serial stopped: %s", e.Error)
		} else {
			m.message = "serial stopped"
		}
		m.refresh()
	case mixevents.ChannelChanged, mixevents.MuteChanged, mixevents.BrightnessChanged:
		m.refresh()
	case mixevents.ConfigSaved, mixevents.LogMessage, mixevents.ShutdownStarted:
		// Shown through the log hook or ignored
	}
}
