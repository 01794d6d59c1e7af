// Package router sets up the HTTP routes for both binaries.
package router

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/content-analyzer/internal/handlers"
	"github.com/Shimizu-Technology/content-analyzer/internal/logger"
	"github.com/Shimizu-Technology/content-analyzer/internal/metrics"
	"github.com/Shimizu-Technology/content-analyzer/internal/middleware"
	"github.com/Shimizu-Technology/content-analyzer/internal/views"
)

// Options are the router settings that come from config.
type Options struct {
	AllowedOrigins   []string
	RateLimitPerHour int
}

// Setup creates the app's router: pages, the JSON mirror, docs and metrics.
// The session is loaded once for every request and read from the context
// by whatever needs it.
func Setup(h *handlers.Handler, opts Options) (*gin.Engine, error) {
	tmpl, err := views.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery(), logger.GinLogger(), metrics.Middleware())
	r.Use(middleware.CORS(opts.AllowedOrigins))
	r.Use(middleware.LoadSession(h.Identity))
	r.SetHTMLTemplate(tmpl)

	rateLimiter := middleware.NewRateLimiter(opts.RateLimitPerHour)

	// --- Pages ---
	r.GET("/", h.Home)

	// The identity UI owns everything under these prefixes.
	r.GET("/sign-in", h.SignInPage)
	r.GET("/sign-in/*path", h.SignInPage)
	r.POST("/sign-in/*path", h.SignInSubmit)
	r.GET("/sign-up", h.SignUpPage)
	r.GET("/sign-up/*path", h.SignUpPage)
	r.POST("/sign-up/*path", h.SignUpSubmit)

	r.POST("/logout", h.Logout)

	pages := r.Group("/analyze")
	pages.Use(middleware.RequireSessionPage())
	{
		pages.GET("", h.AnalyzePage)
		pages.POST("", rateLimiter.RateLimit(), h.AnalyzeSubmit)
	}

	// --- Public API ---
	r.GET("/api/v1/health", h.HealthCheck)
	r.GET("/api/docs", h.ServeSwaggerUI)
	r.GET("/api/docs/openapi.yaml", h.ServeOpenAPISpec)
	r.GET("/metrics", metrics.Handler())

	r.POST("/api/v1/auth/register", h.Register)
	r.POST("/api/v1/auth/login", h.Login)

	// --- Session-protected API ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.RequireSessionAPI())
	{
		protected.POST("/auth/logout", h.APILogout)
		protected.GET("/auth/me", h.GetMe)
		protected.POST("/analyze", rateLimiter.RateLimit(), h.APIAnalyze)
		protected.GET("/records", h.ListRecords)
	}

	r.NoRoute(h.NotFound)

	return r, nil
}

// SetupAnalyzer creates the analysis API's router.
func SetupAnalyzer(h *handlers.AnalyzerHandler, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinLogger(), metrics.Middleware())
	r.Use(middleware.CORS(allowedOrigins))

	r.GET("/api/health", h.Health)
	r.POST("/api/analyze", h.Analyze)
	r.GET("/metrics", metrics.Handler())

	return r
}
