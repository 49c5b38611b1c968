package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/cardgrab/api/handler"
	"github.com/use-agent/cardgrab/api/middleware"
	"github.com/use-agent/cardgrab/cache"
	"github.com/use-agent/cardgrab/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestID
//	API:     Auth (if enabled) → RateLimit
//
// Health stays outside auth so monitoring probes always work.
func NewRouter(ex handler.ProductExtractor, pool handler.StatsSource, cfg *config.Config, cc *cache.Cache, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(pool, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/product", handler.Product(ex, cc))

	return r
}
