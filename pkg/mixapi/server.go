package mixapi

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/txn2/pimixer/pkg/mixapi/handlers"
	"github.com/txn2/pimixer/pkg/mixapi/middleware"
	"github.com/txn2/pimixer/pkg/mixapi/types"
)

// setupRouter creates the Gin router with all routes
//   - /api/health, /api/info
//   - /api/v1/...  channel control, device lines, logs, events
//   - /metrics     Prometheus exposition
func (m *Manager) setupRouter() *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.NoCache())
	r.Use(middleware.ErrorHandler())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		healthHandler := handlers.NewHealthHandler(m.cfg.Version, m.startTime, m.cfg.Mixer,
			func() types.ManagerInfo { return m })
		api.GET("/health", healthHandler.Health)
		api.GET("/info", healthHandler.Info)

		v1 := api.Group("/v1")
		{
			chHandler := handlers.NewChannelsHandler(m.cfg.Mixer)
			v1.GET("/channels", chHandler.List)
			v1.GET("/channels/:id", chHandler.Get)
			v1.PUT("/channels/:id", chHandler.Set)
			v1.POST("/channels/:id/mute", chHandler.Mute)
			v1.POST("/channels/:id/unmute", chHandler.Unmute)
			v1.POST("/channels/:id/toggle", chHandler.Toggle)
			v1.POST("/touch", chHandler.Touch)

			deviceHandler := handlers.NewDeviceHandler(m.cfg.Mixer)
			v1.GET("/device/lines", deviceHandler.Lines)

			logsHandler := handlers.NewLogsHandler(m.logBufferProvider)
			v1.GET("/logs", logsHandler.Recent)

			eventsHandler := handlers.NewEventsHandler(m.streamer)
			v1.GET("/events", eventsHandler.Stream)
		}
	}

	return r
}
