// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/invhealth/internal/api/handlers"
	"github.com/andresuchdata/invhealth/internal/api/middleware"
	"github.com/andresuchdata/invhealth/internal/metrics"
	"github.com/andresuchdata/invhealth/internal/service"
)

type Services struct {
	AuditService *service.AuditService
}

// NewRouter builds the HTTP surface. An empty metricsPath disables /metrics.
func NewRouter(services *Services, allowedOrigins []string, metricsPath string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
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
	if metricsPath != "" {
		router.GET(metricsPath, gin.WrapH(metrics.Handler()))
	}

	apiGroup := router.Group("/api/v1")

	if services != nil && services.AuditService != nil {
		auditHandler := handlers.NewAuditHandler(services.AuditService)
		auditGroup := apiGroup.Group("/audit")
		{
			auditGroup.POST("/run", auditHandler.RunAudit)
			auditGroup.GET("/latest", auditHandler.GetLatest)
			auditGroup.GET("/latest/issues.csv", auditHandler.GetLatestIssuesCSV)
			auditGroup.GET("/reports/:date", auditHandler.GetReport)
			auditGroup.GET("/runs", auditHandler.GetRuns)
			auditGroup.GET("/parameters", auditHandler.GetParameters)
			auditGroup.POST("/parameters/trained", auditHandler.MarkTrained)
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
		for _, part := range strings.Split(origin, ",") {
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
