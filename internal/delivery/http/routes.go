package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pricelens/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Operational endpoints
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		v1.GET("/roles", handler.ListRoles)
		v1.POST("/extract", handler.Extract)

		v1.POST("/prices/reconcile", handler.Reconcile)
		v1.POST("/offers/review", handler.ReviewOffer)

		kb := v1.Group("/knowledge-base")
		{
			kb.GET("", handler.ListKnowledgeBase)
			kb.POST("", handler.AddKnowledgeBaseEntry)
			kb.DELETE("", handler.ClearKnowledgeBase)
			kb.GET("/search", handler.SearchKnowledgeBase)
			kb.GET("/stats", handler.KnowledgeBaseStats)
			kb.POST("/extract", handler.ExtractKnowledgeBaseEntry)
			kb.POST("/import", handler.ImportKnowledgeBase)
			kb.GET("/export", handler.ExportKnowledgeBase)
		}
	}

	return router
}
