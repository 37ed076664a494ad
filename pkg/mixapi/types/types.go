package types

import (
	"time"

	"github.com/txn2/pimixer/pkg/mixstate"
)

// Response is the standard API response wrapper
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo provides error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo provides response metadata
type MetaInfo struct {
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ChannelResponse is one control channel
type ChannelResponse struct {
	ID           int     `json:"id"`
	Label        string  `json:"label"`
	Value        int     `json:"value"`
	Percent      float64 `json:"percent"`
	Muted        bool    `json:"muted"`
	PreMuteValue int     `json:"preMuteValue,omitempty"`
}

// ChannelListResponse is the full control set
type ChannelListResponse struct {
	Channels   []ChannelResponse `json:"channels"`
	Frame      string            `json:"frame"`
	Brightness string            `json:"brightness"`
	Bridge     string            `json:"bridge"` // "up" or "down"
}

// SetValueRequest is the body of PUT /api/v1/channels/:id
type SetValueRequest struct {
	Value *int `json:"value" binding:"required"`
}

// TouchResponse reports the brightness state after a touch was queued
type TouchResponse struct {
	Accepted   bool   `json:"accepted"`
	Brightness string `json:"brightness"`
}

// DeviceLinesResponse holds recent lines received from the device
type DeviceLinesResponse struct {
	Lines []string `json:"lines"`
}

// LogEntryResponse represents a log entry in API responses
type LogEntryResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// LogsResponse contains a list of log entries
type LogsResponse struct {
	Logs []LogEntryResponse `json:"logs"`
}

// HealthResponse provides health status
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// InfoResponse provides detailed runtime information
type InfoResponse struct {
	Version    string    `json:"version"`
	GoVersion  string    `json:"goVersion"`
	Platform   string    `json:"platform"`
	StartTime  time.Time `json:"startTime"`
	Uptime     string    `json:"uptime"`
	Device     string    `json:"device,omitempty"`
	ConfigPath string    `json:"configPath,omitempty"`
	TUIEnabled bool      `json:"tuiEnabled"`
}

// EventResponse represents an event for SSE streaming
type EventResponse struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// LogBufferEntry is one captured log line
type LogBufferEntry struct {
	Timestamp time.Time
	Level     string
	Message   string
}

// NewChannelResponse maps a channel for the API
func NewChannelResponse(c mixstate.Channel) ChannelResponse {
	r := ChannelResponse{
		ID:      c.ID,
		Label:   c.Label,
		Value:   c.Value,
		Percent: c.Percent(),
		Muted:   c.Muted,
	}
	if c.Muted {
		r.PreMuteValue = c.PreMuteValue
	}
	return r
}
