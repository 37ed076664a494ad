package mixtui

import (
	log "github.com/sirupsen/logrus"
)

// logHook forwards logrus entries into the TUI log panel
type logHook struct {
	logCh  chan<- LogEntryMsg
	stopCh <-chan struct{}
}

func (h *logHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *logHook) Fire(entry *log.Entry) error {
	select {
	case <-h.stopCh:
		return nil
	default:
	}
	select {
	case h.logCh <- LogEntryMsg{
		Level:   entry.Level,
		Message: entry.Message,
		Time:    entry.Time,
	}:
	default:
		// Buffer full, drop
	}
	return nil
}
