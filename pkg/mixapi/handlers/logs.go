package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/txn2/pimixer/pkg/mixapi/types"
)

// LogsHandler serves the captured application log
type LogsHandler struct {
	getBuffer func() types.LogBufferProvider
}

// NewLogsHandler creates a new logs handler
func NewLogsHandler(getBuffer func() types.LogBufferProvider) *LogsHandler {
	return &LogsHandler{getBuffer: getBuffer}
}

// Recent returns up to ?count= entries, most recent first
func (h *LogsHandler) Recent(c *gin.Context) {
	var buf types.LogBufferProvider
	if h.getBuffer != nil {
		buf = h.getBuffer()
	}
	if buf == nil {
		notReady(c, "Log buffer")
		return
	}

	entries := buf.GetLast(countParam(c, 100, 1000))
	resp := types.LogsResponse{Logs: make([]types.LogEntryResponse, len(entries))}
	for i, e := range entries {
		resp.Logs[i] = types.LogEntryResponse{
			Timestamp: e.Timestamp,
			Level:     e.Level,
			Message:   e.Message,
		}
	}
	ok(c, resp, len(entries))
}
