package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/replenish/internal/jobs"
)

// Ticker runs one orchestrator invocation.
type Ticker interface {
	Tick(ctx context.Context) (jobs.Report, error)
}

type OpsHandler struct {
	ticker Ticker
}

func NewOpsHandler(ticker Ticker) *OpsHandler {
	return &OpsHandler{ticker: ticker}
}

// Tick runs the orchestrator detached from the request so a disconnecting
// client cannot cancel half-finished job runs.
func (h *OpsHandler) Tick(c *gin.Context) {
	report, err := h.ticker.Tick(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tick failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}
