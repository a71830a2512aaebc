package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andresuchdata/replenish/internal/api/handlers"
	"github.com/andresuchdata/replenish/internal/api/middleware"
	"github.com/andresuchdata/replenish/internal/metrics"
	"github.com/andresuchdata/replenish/internal/service"
)

type Services struct {
	ReportService *service.ReportService
	StockService  *service.StockService
	Ticker        handlers.Ticker
}

// Observability carries the collectors the router records into and exposes.
type Observability struct {
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

func NewRouter(services *Services, obs Observability, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	if obs.Metrics != nil {
		router.Use(middleware.Metrics(obs.Metrics))
	}

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if obs.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(obs.Gatherer, promhttp.HandlerOpts{})))
	}

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.ReportService != nil {
			reportHandler := handlers.NewReportHandler(services.ReportService)
			regionGroup := apiGroup.Group("/regions/:id")
			{
				regionGroup.GET("/job-runs", reportHandler.GetJobRuns)
				regionGroup.GET("/recommendations", reportHandler.GetRecommendations)
				regionGroup.GET("/deadstock", reportHandler.GetDeadstock)
				regionGroup.GET("/forecasts", reportHandler.GetForecasts)
				regionGroup.GET("/kpi", reportHandler.GetKPI)
				regionGroup.GET("/documents", reportHandler.GetDocuments)
			}
		}

		if services.StockService != nil {
			stockHandler := handlers.NewStockHandler(services.StockService)
			apiGroup.POST("/regions/:id/transfers", stockHandler.CreateTransfer)
			apiGroup.GET("/regions/:id/skus/:sku_id/stock", stockHandler.GetStock)
		}

		if services.Ticker != nil {
			opsHandler := handlers.NewOpsHandler(services.Ticker)
			apiGroup.POST("/ops/tick", opsHandler.Tick)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
