package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers everything the router mounts
type Handlers struct {
	Sync       *SyncHandler
	Slots      *SlotHandler
	Preference *PreferenceHandler
}

// RegisterRoutes mounts the pipeline trigger, the read API and /metrics
func RegisterRoutes(r *gin.Engine, h Handlers) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	syncGroup := r.Group("/sync")
	{
		syncGroup.POST("/run", h.Sync.RunSync)
	}

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/slots", h.Slots.ListSlots)
		apiGroup.GET("/locations", h.Slots.ListLocations)
		apiGroup.GET("/preferences", h.Preference.GetPreferences)
		apiGroup.POST("/preferences", h.Preference.SubmitPreferences)
	}
}
