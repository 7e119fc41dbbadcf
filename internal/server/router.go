// Package server assembles the gin engine: CORS, auth routes, and one
// mounted CRUD resource per entity family in the catalog.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/folio-dev/folio/internal/auth"
	"github.com/folio-dev/folio/internal/config"
	"github.com/folio-dev/folio/internal/crud"
	"github.com/folio-dev/folio/internal/entity"
	"github.com/folio-dev/folio/internal/storage"
)

// New builds the HTTP router for the given configuration and store.
func New(cfg *config.Config, store storage.Store) *gin.Engine {
	if cfg.Env == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(corsMiddleware(cfg.HTTPServer.CORSAllowedOrigin))

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	guard := auth.NewGuard(store, tokens)
	limiter := auth.NewRateLimiter(cfg.RateLimit.Window, cfg.RateLimit.MaxAttempts)

	api := r.Group("/api")

	authHandler := auth.NewHandler(store, tokens, cfg.Auth.BcryptCost, cfg.TLS.Enabled)
	authHandler.Mount(api, guard, limiter.Middleware())

	policy := crud.Policy{
		RequireAdmin: guard.RequireAdmin(),
		CreateLimit:  limiter.Middleware(),
	}
	for _, opts := range entity.Catalog(cfg.Env, cfg.HTTPServer.CacheMaxAge) {
		crud.New(store, opts).Mount(api, policy)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found."})
	})

	return r
}

// corsMiddleware mirrors the configured origin and short-circuits preflight
// requests. Credentials are only allowed for a concrete origin, never "*".
func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers",
			"Content-Type, Content-Length, Accept-Encoding, "+auth.CSRFHeader+", Authorization")
		if origin != "*" {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
