// Package server assembles the HTTP engine: middleware, health and metrics endpoints, and the
// API routes of every module.
package server

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/auth"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/config"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/database"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/observability"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/uploads"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow"
)

const APIPrefix = "/api/v1"

type Options struct {
	CORS     config.CORSConfig
	DB       *gorm.DB
	Users    *auth.AuthService
	Tokens   *auth.TokenExtractor
	Workflow *workflow.Manager
	Uploads  *uploads.HTTPHandler
}

// NewEngine builds the gin engine serving the API under APIPrefix.
func NewEngine(opts Options) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), observability.HTTPLogger(), cors.New(corsConfig(opts.CORS)))

	engine.GET("/health", healthHandler(opts.DB))
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group(APIPrefix, auth.Middleware(opts.Users, opts.Tokens))
	opts.Workflow.RegisterRoutes(api)
	api.POST("/requests/:id/files", auth.RequireAuth(), opts.Uploads.Upload)
	api.GET("/uploads/:key", auth.RequireAuth(), opts.Uploads.Download)

	return engine
}

func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := database.HealthCheck(c.Request.Context(), db); err != nil {
			log.Error().Err(err).Msg("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// corsConfig maps the CORS settings onto gin-contrib/cors. A "*" origin, or no origins at all,
// allows every origin; cors.New panics on an empty origin list.
func corsConfig(cfg config.CORSConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     cfg.AllowedMethods,
		AllowHeaders:     cfg.AllowedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           time.Duration(cfg.MaxAge) * time.Second,
	}
	if len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*") {
		c.AllowAllOrigins = true
		// Credentials cannot be combined with a wildcard origin.
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
	}
	return c
}
