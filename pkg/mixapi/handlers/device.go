package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/txn2/pimixer/pkg/mixapi/types"
)

// DeviceHandler exposes what the device has been saying
type DeviceHandler struct {
	mixer types.MixerController
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(mixer types.MixerController) *DeviceHandler {
	return &DeviceHandler{mixer: mixer}
}

// Lines returns the most recent device lines, oldest first
func (h *DeviceHandler) Lines(c *gin.Context) {
	if h.mixer == nil {
		notReady(c, "Mixer")
		return
	}
	lines := h.mixer.RecentLines(countParam(c, 50, 1000))
	ok(c, types.DeviceLinesResponse{Lines: lines}, len(lines))
}
