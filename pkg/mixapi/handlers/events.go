package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/txn2/pimixer/pkg/mixapi/types"
	"github.com/txn2/pimixer/pkg/mixevents"
)

// EventsHandler streams loop events over SSE
type EventsHandler struct {
	streamer types.EventStreamer
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(streamer types.EventStreamer) *EventsHandler {
	return &EventsHandler{streamer: streamer}
}

// Stream provides Server-Sent Events, optionally filtered by ?type=
func (h *EventsHandler) Stream(c *gin.Context) {
	if h.streamer == nil {
		notReady(c, "Event streamer")
		return
	}

	var eventCh <-chan mixevents.Event
	var cancel func()
	if filter := c.Query("type"); filter != "" {
		eventType, known := parseEventType(filter)
		if !known {
			fail(c, 400, "BAD_REQUEST", "unknown event type "+filter)
			return
		}
		eventCh, cancel = h.streamer.SubscribeType(eventType)
	} else {
		eventCh, cancel = h.streamer.Subscribe()
	}
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	_, _ = c.Writer.WriteString(": connected\n\n")
	c.Writer.Flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, open := <-eventCh:
			if !open {
				return false
			}
			jsonData, err := json.Marshal(mapEventToResponse(event))
			if err != nil {
				return true
			}
			_, _ = fmt.Fprintf(w, "event: %s\n", event.Type)
			_, _ = fmt.Fprintf(w, "data: %s\n\n", jsonData)
			return true
		case <-keepalive.C:
			_, _ = fmt.Fprintf(w, ": keepalive\n\n")
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func mapEventToResponse(e mixevents.Event) types.EventResponse {
	data := map[string]interface{}{}

	switch e.Type {
	case mixevents.ChannelChanged, mixevents.MuteChanged:
		data["channel"] = types.NewChannelResponse(e.Channel)
	case mixevents.ConfigSaved:
		data["snapshot"] = e.Snapshot.String()
	case mixevents.BrightnessChanged:
		data["brightness"] = e.Brightness
	case mixevents.DeviceLine:
		data["line"] = e.Line
	case mixevents.LogMessage:
		data["level"] = e.LogLevel.String()
		data["message"] = e.LogMessage
	}
	if e.Error != nil {
		data["error"] = e.Error.Error()
	}

	return types.EventResponse{
		Type:      e.Type.String(),
		Timestamp: e.Timestamp,
		Data:      data,
	}
}

func parseEventType(s string) (mixevents.EventType, bool) {
	for et := mixevents.ChannelChanged; et <= mixevents.ShutdownStarted; et++ {
		if et.String() == s {
			return et, true
		}
	}
	return 0, false
}
