package api

import (
	"net/http"

	"CourtSync/internal/interfaces"
	"CourtSync/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AdapterCatalog initialised providers; satisfied by adapter.PlatformRegistry
type AdapterCatalog interface {
	Adapters() []interfaces.SlotAdapter
	GetAdapter(platform model.PlatformType) (interfaces.SlotAdapter, error)
}

// SlotHandler read-only views of the current snapshot and the location catalog
type SlotHandler struct {
	repo    interfaces.SlotRepository
	catalog AdapterCatalog
	logger  *logrus.Logger
}

func NewSlotHandler(repo interfaces.SlotRepository, catalog AdapterCatalog, logger *logrus.Logger) *SlotHandler {
	return &SlotHandler{repo: repo, catalog: catalog, logger: logger}
}

// ListSlots current snapshot
// GET /api/slots?location=finsbury-park&date=2024-06-01&available=true
func (h *SlotHandler) ListSlots(c *gin.Context) {
	location := c.Query("location")
	date := c.Query("date")
	onlyAvailable := c.Query("available") == "true"

	stored, err := h.repo.ListSlots(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("ListSlots failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	slots := make([]model.CanonicalSlot, 0, len(stored))
	for _, s := range stored {
		if location != "" && s.Location != location {
			continue
		}
		if date != "" && s.Date != date {
			continue
		}
		if onlyAvailable && s.Spaces == 0 {
			continue
		}
		slots = append(slots, s.Canonical())
	}
	c.JSON(http.StatusOK, gin.H{"total": len(slots), "list": slots})
}

// ListLocations selectable location keys, optionally for one provider
// GET /api/locations?platform=lta
func (h *SlotHandler) ListLocations(c *gin.Context) {
	platform := c.Query("platform")
	if platform == "" {
		c.JSON(http.StatusOK, gin.H{"list": interfaces.AllLocations(h.catalog.Adapters())})
		return
	}

	a, err := h.catalog.GetAdapter(model.PlatformType(platform))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": interfaces.AllLocations([]interfaces.SlotAdapter{a})})
}
