// Package mixevents carries state changes from the control loop to the
// surfaces (TUI, API) without ever blocking the loop.
package mixevents

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/txn2/pimixer/pkg/mixstate"
)

// EventType identifies what happened
type EventType int

const (
	ChannelChanged EventType = iota
	MuteChanged
	ConfigSaved
	BrightnessChanged
	DeviceLine
	BridgeStopped
	LogMessage
	ShutdownStarted
)

func (e EventType) String() string {
	switch e {
	case ChannelChanged:
		return "ChannelChanged"
	case MuteChanged:
		return "MuteChanged"
	case ConfigSaved:
		return "ConfigSaved"
	case BrightnessChanged:
		return "BrightnessChanged"
	case DeviceLine:
		return "DeviceLine"
	case BridgeStopped:
		return "BridgeStopped"
	case LogMessage:
		return "LogMessage"
	case ShutdownStarted:
		return "ShutdownStarted"
	default:
		return "Unknown"
	}
}

// Event is a flat record; only the fields relevant to Type are set
type Event struct {
	Type      EventType
	Timestamp time.Time

	Channel  mixstate.Channel
	Snapshot mixstate.Snapshot

	Brightness string
	Line       string
	Error      error

	LogLevel   logrus.Level
	LogMessage string
}

// NewChannelEvent reports a value or mute change on one channel
func NewChannelEvent(eventType EventType, ch mixstate.Channel) Event {
	return Event{Type: eventType, Timestamp: time.Now(), Channel: ch}
}

// NewConfigSavedEvent reports a snapshot that reached disk
func NewConfigSavedEvent(snap mixstate.Snapshot) Event {
	return Event{Type: ConfigSaved, Timestamp: time.Now(), Snapshot: snap}
}

// NewBrightnessEvent reports a brightness session transition
func NewBrightnessEvent(state string) Event {
	return Event{Type: BrightnessChanged, Timestamp: time.Now(), Brightness: state}
}

// NewDeviceLineEvent carries one line received from the device
func NewDeviceLineEvent(line string) Event {
	return Event{Type: DeviceLine, Timestamp: time.Now(), Line: line}
}

// NewBridgeStoppedEvent reports the serial bridge going down
func NewBridgeStoppedEvent(err error) Event {
	return Event{Type: BridgeStopped, Timestamp: time.Now(), Error: err}
}

// NewLogEvent wraps a log entry
func NewLogEvent(level logrus.Level, message string) Event {
	return Event{Type: LogMessage, Timestamp: time.Now(), LogLevel: level, LogMessage: message}
}
