package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/txn2/pimixer/pkg/mixapi/types"
)

// HealthHandler handles health and info endpoints
type HealthHandler struct {
	version    string
	startTime  time.Time
	mixer      types.MixerController
	getManager func() types.ManagerInfo
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, startTime time.Time, mixer types.MixerController, getManager func() types.ManagerInfo) *HealthHandler {
	return &HealthHandler{
		version:    version,
		startTime:  startTime,
		mixer:      mixer,
		getManager: getManager,
	}
}

// Health reports "degraded" once the serial bridge is down
func (h *HealthHandler) Health(c *gin.Context) {
	status := "healthy"
	if h.mixer == nil || !h.mixer.Broadcasting() {
		status = "degraded"
	}

	c.JSON(http.StatusOK, types.HealthResponse{
		Status:    status,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now(),
	})
}

// Info returns detailed runtime information
func (h *HealthHandler) Info(c *gin.Context) {
	response := types.InfoResponse{
		Version:   h.version,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		StartTime: h.startTime,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	if h.getManager != nil {
		if m := h.getManager(); m != nil {
			response.Device = m.Device()
			response.ConfigPath = m.ConfigPath()
			response.TUIEnabled = m.TUIEnabled()
		}
	}

	ok(c, response, 0)
}
