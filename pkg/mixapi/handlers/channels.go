package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/txn2/pimixer/pkg/mixapi/types"
	"github.com/txn2/pimixer/pkg/mixloop"
	"github.com/txn2/pimixer/pkg/mixstate"
)

// ChannelsHandler reads and mutates control channels
type ChannelsHandler struct {
	mixer types.MixerController
}

// NewChannelsHandler creates a new channels handler
func NewChannelsHandler(mixer types.MixerController) *ChannelsHandler {
	return &ChannelsHandler{mixer: mixer}
}

// List returns every channel plus the frame currently on the wire
func (h *ChannelsHandler) List(c *gin.Context) {
	if h.mixer == nil {
		notReady(c, "Mixer")
		return
	}

	chs := h.mixer.Channels()
	resp := types.ChannelListResponse{
		Channels:   make([]types.ChannelResponse, len(chs)),
		Frame:      h.mixer.Snapshot().String(),
		Brightness: h.mixer.Brightness().String(),
		Bridge:     "down",
	}
	if h.mixer.Broadcasting() {
		resp.Bridge = "up"
	}
	for i, ch := range chs {
		resp.Channels[i] = types.NewChannelResponse(ch)
	}
	ok(c, resp, len(chs))
}

// Get returns one channel
func (h *ChannelsHandler) Get(c *gin.Context) {
	id, valid := h.channelID(c)
	if !valid {
		return
	}
	ch, err := h.mixer.Channel(id)
	if err != nil {
		fail(c, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	ok(c, types.NewChannelResponse(ch), 0)
}

// Set handles PUT {"value": n}. Values outside the range are clamped.
func (h *ChannelsHandler) Set(c *gin.Context) {
	id, valid := h.channelID(c)
	if !valid {
		return
	}
	var req types.SetValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "BAD_REQUEST", "body must be {\"value\": <integer>}")
		return
	}
	h.apply(c, mixloop.Command{Op: mixloop.OpSet, ID: id, Value: *req.Value})
}

// Mute remembers the value and drives the channel to zero
func (h *ChannelsHandler) Mute(c *gin.Context) {
	h.simple(c, mixloop.OpMute)
}

// Unmute restores the remembered value
func (h *ChannelsHandler) Unmute(c *gin.Context) {
	h.simple(c, mixloop.OpUnmute)
}

// Toggle flips the mute state
func (h *ChannelsHandler) Toggle(c *gin.Context) {
	h.simple(c, mixloop.OpToggleMute)
}

// Touch is a pointer-down from a remote surface
func (h *ChannelsHandler) Touch(c *gin.Context) {
	if h.mixer == nil {
		notReady(c, "Mixer")
		return
	}
	if err := h.mixer.Touch(); err != nil {
		h.loopError(c, err)
		return
	}
	ok(c, types.TouchResponse{Accepted: true, Brightness: h.mixer.Brightness().String()}, 0)
}

func (h *ChannelsHandler) simple(c *gin.Context, op mixloop.Op) {
	id, valid := h.channelID(c)
	if !valid {
		return
	}
	h.apply(c, mixloop.Command{Op: op, ID: id})
}

func (h *ChannelsHandler) apply(c *gin.Context, cmd mixloop.Command) {
	ch, err := h.mixer.Apply(c.Request.Context(), cmd)
	if err != nil {
		h.loopError(c, err)
		return
	}
	ok(c, types.NewChannelResponse(ch), 0)
}

func (h *ChannelsHandler) loopError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, mixloop.ErrBusy):
		fail(c, http.StatusTooManyRequests, "BUSY", err.Error())
	case errors.Is(err, mixloop.ErrStopped):
		fail(c, http.StatusServiceUnavailable, "STOPPED", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusGatewayTimeout, "TIMEOUT", err.Error())
	default:
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

// channelID parses :id and writes the error response itself
func (h *ChannelsHandler) channelID(c *gin.Context) (int, bool) {
	if h.mixer == nil {
		notReady(c, "Mixer")
		return 0, false
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "BAD_REQUEST", "channel id must be an integer")
		return 0, false
	}
	if !mixstate.ValidID(id) {
		fail(c, http.StatusNotFound, "NOT_FOUND", "channel "+strconv.Itoa(id)+" does not exist")
		return 0, false
	}
	return id, true
}
