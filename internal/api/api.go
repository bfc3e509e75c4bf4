package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andresuchdata/stockintel/internal/api/handlers"
	"github.com/andresuchdata/stockintel/internal/api/middleware"
	"github.com/andresuchdata/stockintel/internal/service"
)

type Services struct {
	Intelligence *service.IntelligenceService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
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
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := router.Group("/api/v1")

	if services != nil && services.Intelligence != nil {
		h := handlers.NewIntelligenceHandler(services.Intelligence)
		intel := apiGroup.Group("/intelligence")
		{
			intel.POST("/classify", h.Classify)
			intel.POST("/forecast", h.Forecast)
			intel.POST("/backtest", h.Backtest)
			intel.POST("/reorder", h.Reorder)
			intel.POST("/simulate", h.Simulate)
			intel.POST("/simulate/sweep", h.SweepSafetyStock)
			intel.GET("/grade-changes", h.GradeChanges)
			intel.POST("/evaluate", h.Evaluate)
			intel.DELETE("/cache", h.InvalidateCache)
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
