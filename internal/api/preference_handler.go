package api

import (
	"errors"
	"net/http"

	"CourtSync/internal/model"
	"CourtSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type PreferenceHandler struct {
	svc    *service.PreferenceService
	logger *logrus.Logger
}

func NewPreferenceHandler(svc *service.PreferenceService, logger *logrus.Logger) *PreferenceHandler {
	return &PreferenceHandler{svc: svc, logger: logger}
}

// SubmitPreferencesRequest POST /api/preferences body
type SubmitPreferencesRequest struct {
	Email      string              `json:"email" binding:"required"`
	Selections []service.Selection `json:"selections" binding:"required,min=1"`
}

type preferenceView struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
}

// SubmitPreferences replaces every subscription of the email
// POST /api/preferences
func (h *PreferenceHandler) SubmitPreferences(c *gin.Context) {
	var req SubmitPreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prefs, err := h.svc.Replace(c.Request.Context(), req.Email, req.Selections)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPreference) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("SubmitPreferences failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": req.Email, "count": len(prefs), "list": toViews(prefs)})
}

// GetPreferences GET /api/preferences?email=a@example.com
func (h *PreferenceHandler) GetPreferences(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	prefs, err := h.svc.List(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPreference) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("GetPreferences failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": email, "count": len(prefs), "list": toViews(prefs)})
}

func toViews(prefs []model.UserPreference) []preferenceView {
	res := make([]preferenceView, 0, len(prefs))
	for _, p := range prefs {
		res = append(res, preferenceView{Date: p.Date, Time: p.Time, Location: p.Location})
	}
	return res
}
