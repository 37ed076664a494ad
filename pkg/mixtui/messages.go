package mixtui

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/txn2/pimixer/pkg/mixevents"
)

// MixerEventMsg wraps control loop events for the TUI
type MixerEventMsg struct {
	Event mixevents.Event
}

// LogEntryMsg represents a log message to display
type LogEntryMsg struct {
	Level   logrus.Level
	Message string
	Time    time.Time
}

// ShutdownMsg signals the TUI to shut down
type ShutdownMsg struct{}

// RefreshMsg triggers a re-read of the published channel state
type RefreshMsg struct{}
