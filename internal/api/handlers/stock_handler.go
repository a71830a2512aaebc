package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/replenish/internal/service"
)

type StockHandler struct {
	service *service.StockService
}

func NewStockHandler(service *service.StockService) *StockHandler {
	return &StockHandler{service: service}
}

// CreateTransfer handles POST /regions/:id/transfers
func (h *StockHandler) CreateTransfer(c *gin.Context) {
	regionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || regionID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid region id"})
		return
	}

	var in service.TransferInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	mv, err := h.service.Transfer(c.Request.Context(), regionID, in)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTransfer) || errors.Is(err, service.ErrInsufficientStock) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		writeError(c, "failed to transfer stock", err)
		return
	}
	c.JSON(http.StatusCreated, mv)
}

// GetStock handles GET /regions/:id/skus/:sku_id/stock
func (h *StockHandler) GetStock(c *gin.Context) {
	regionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || regionID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid region id"})
		return
	}
	skuID, err := strconv.ParseInt(c.Param("sku_id"), 10, 64)
	if err != nil || skuID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sku id"})
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), regionID, skuID)
	if err != nil {
		writeError(c, "failed to fetch stock", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
