package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"CourtSync/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const defaultMaxDays = 30

// SyncRunner runs one pipeline pass
type SyncRunner interface {
	Run(ctx context.Context, days int) *model.RunSummary
}

type SyncHandler struct {
	runner  SyncRunner
	maxDays int
	logger  *logrus.Logger
}

func NewSyncHandler(runner SyncRunner, maxDays int, logger *logrus.Logger) *SyncHandler {
	if maxDays <= 0 {
		maxDays = defaultMaxDays
	}
	return &SyncHandler{runner: runner, maxDays: maxDays, logger: logger}
}

// RunSync triggers one fetch-diff-notify run
// POST /sync/run?days=6
// 200 with the run summary, 400 on a bad days value, 500 when the run failed
func (h *SyncHandler) RunSync(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > h.maxDays {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("days must be an integer between 1 and %d", h.maxDays),
			})
			return
		}
		days = n
	}

	summary := h.runner.Run(c.Request.Context(), days)
	if !summary.Success {
		h.logger.WithFields(logrus.Fields{
			"run_id": summary.RunID,
			"error":  summary.Error,
		}).Error("sync run failed")
		c.JSON(http.StatusInternalServerError, summary)
		return
	}
	c.JSON(http.StatusOK, summary)
}
