package mixapi

import (
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/txn2/pimixer/pkg/mixapi/types"
)

const (
	DefaultLogBufferSize = 1000
	maxLogBufferSize     = 10000
)

// LogBuffer is a ring of recent log entries
type LogBuffer struct {
	mu      sync.RWMutex
	entries []types.LogBufferEntry
	size    int
	head    int
	count   int
}

// NewLogBuffer creates a buffer holding up to size entries
func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = DefaultLogBufferSize
	}
	if size > maxLogBufferSize {
		size = maxLogBufferSize
	}
	return &LogBuffer{
		entries: make([]types.LogBufferEntry, size),
		size:    size,
	}
}

// Add appends entry, overwriting the oldest when full
func (b *LogBuffer) Add(entry types.LogBufferEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.head] = entry
	b.head = (b.head + 1) % b.size
	if b.count < b.size {
		b.count++
	}
}

// GetLast returns up to n entries, most recent first
func (b *LogBuffer) GetLast(n int) []types.LogBufferEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || b.count == 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	result := make([]types.LogBufferEntry, n)
	for i := range result {
		result[i] = b.entries[(b.head-1-i+b.size)%b.size]
	}
	return result
}

// Count returns the number of buffered entries
func (b *LogBuffer) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Clear drops every entry
func (b *LogBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.count = 0
}

var _ types.LogBufferProvider = (*LogBuffer)(nil)

// LogBufferHook copies logrus entries into a LogBuffer
type LogBufferHook struct {
	buffer *LogBuffer
	levels []log.Level
}

// NewLogBufferHook creates a hook for levels, or all levels when nil
func NewLogBufferHook(buffer *LogBuffer, levels []log.Level) *LogBufferHook {
	if levels == nil {
		levels = log.AllLevels
	}
	return &LogBufferHook{buffer: buffer, levels: levels}
}

// Levels returns the log levels this hook handles
func (h *LogBufferHook) Levels() []log.Level {
	return h.levels
}

// Fire is called when a log entry is made
func (h *LogBufferHook) Fire(entry *log.Entry) error {
	h.buffer.Add(types.LogBufferEntry{
		Timestamp: entry.Time,
		Level:     entry.Level.String(),
		Message:   entry.Message,
	})
	return nil
}

// InstallLogBuffer attaches a new buffer to the standard logger
func InstallLogBuffer(size int) *LogBuffer {
	buffer := NewLogBuffer(size)
	log.AddHook(NewLogBufferHook(buffer, nil))
	return buffer
}
