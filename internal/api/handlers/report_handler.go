package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/schedule"
	"github.com/andresuchdata/replenish/internal/service"
)

type ReportHandler struct {
	service *service.ReportService
}

func NewReportHandler(service *service.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// parseScope reads the region id and the optional ?date= of a report request
// and resolves the date against the region. It writes the error response itself.
func (h *ReportHandler) parseScope(c *gin.Context) (domain.Region, civil.Date, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid region id"})
		return domain.Region{}, civil.Date{}, false
	}

	var date *civil.Date
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		d, err := civil.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return domain.Region{}, civil.Date{}, false
		}
		date = &d
	}

	region, resolved, err := h.service.ResolveDate(c.Request.Context(), id, date)
	if err != nil {
		writeError(c, "failed to resolve region", err)
		return domain.Region{}, civil.Date{}, false
	}
	return region, resolved, true
}

// writeError maps domain errors onto HTTP statuses.
func writeError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case schedule.IsConfigError(err):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"error": message, "details": err.Error()})
}

func (h *ReportHandler) GetJobRuns(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid region id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	runs, err := h.service.JobRuns(c.Request.Context(), id, limit)
	if err != nil {
		writeError(c, "failed to fetch job runs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": runs, "total": len(runs)})
}

func (h *ReportHandler) GetRecommendations(c *gin.Context) {
	region, date, ok := h.parseScope(c)
	if !ok {
		return
	}
	recs, err := h.service.Recommendations(c.Request.Context(), region.ID, date, c.Query("priority"))
	if err != nil {
		writeError(c, "failed to fetch recommendations", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "items": recs, "total": len(recs)})
}

func (h *ReportHandler) GetDeadstock(c *gin.Context) {
	region, date, ok := h.parseScope(c)
	if !ok {
		return
	}
	risks, err := h.service.Deadstock(c.Request.Context(), region.ID, date, c.Query("risk"))
	if err != nil {
		writeError(c, "failed to fetch deadstock risks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "items": risks, "total": len(risks)})
}

func (h *ReportHandler) GetForecasts(c *gin.Context) {
	region, date, ok := h.parseScope(c)
	if !ok {
		return
	}
	forecasts, err := h.service.Forecasts(c.Request.Context(), region.ID, date)
	if err != nil {
		writeError(c, "failed to fetch forecasts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "items": forecasts, "total": len(forecasts)})
}

func (h *ReportHandler) GetKPI(c *gin.Context) {
	region, date, ok := h.parseScope(c)
	if !ok {
		return
	}
	kpi, err := h.service.KPI(c.Request.Context(), region.ID, date)
	if err != nil {
		writeError(c, "failed to fetch kpi", err)
		return
	}
	c.JSON(http.StatusOK, kpi)
}

func (h *ReportHandler) GetDocuments(c *gin.Context) {
	region, date, ok := h.parseScope(c)
	if !ok {
		return
	}
	docs, err := h.service.Documents(c.Request.Context(), region.ID, date)
	if err != nil {
		writeError(c, "failed to fetch documents", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "items": docs, "total": len(docs)})
}
