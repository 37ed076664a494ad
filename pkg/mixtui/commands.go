package mixtui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/txn2/pimixer/pkg/mixevents"
)

// RefreshInterval bounds how stale the bars get if events are dropped
const RefreshInterval = 250 * time.Millisecond

// ListenEvents creates a command that waits for the next mixer event
func ListenEvents(eventCh <-chan mixevents.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-eventCh
		if !ok {
			return nil
		}
		return MixerEventMsg{Event: event}
	}
}

// ListenLogs creates a command that listens for log entries
func ListenLogs(logCh <-chan LogEntryMsg) tea.Cmd {
	return func() tea.Msg {
		entry, ok := <-logCh
		if !ok {
			return nil
		}
		return entry
	}
}

// ListenShutdown creates a command that listens for shutdown signal
func ListenShutdown(stopCh <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-stopCh
		return ShutdownMsg{}
	}
}

// TickRefresh schedules the next RefreshMsg
func TickRefresh() tea.Cmd {
	return tea.Tick(RefreshInterval, func(time.Time) tea.Msg {
		return RefreshMsg{}
	})
}

// SendLog creates a log entry message
func SendLog(level logrus.Level, message string) tea.Cmd {
	return func() tea.Msg {
		return LogEntryMsg{
			Level:   level,
			Message: message,
			Time:    time.Now(),
		}
	}
}
