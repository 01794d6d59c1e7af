// Package handlers contains the HTTP handlers for the app and the analysis API.
//
// Go Pattern: Handlers in Gin receive a *gin.Context which provides:
// - Request data (params, query, body, headers)
// - Response methods (JSON, HTML, Redirect)
// - Middleware data (c.Get/c.Set)
//
// Related handlers hang off one struct (Handler) that holds shared
// dependencies as interfaces, so tests can swap in fakes.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/content-analyzer/internal/identity"
	"github.com/Shimizu-Technology/content-analyzer/internal/models"
	"github.com/Shimizu-Technology/content-analyzer/internal/services/analyze"
	"github.com/Shimizu-Technology/content-analyzer/internal/services/upload"
)

// Version is reported by the health check. main overrides it at startup.
var Version = "dev"

// Analyses runs analyses. *analyze.Service satisfies it.
type Analyses interface {
	Run(ctx context.Context, session models.Session, sel *upload.Selection) (*analyze.Outcome, error)
	Loading(userID string) bool
}

// RecordLister reads stored records back. *docstore.Store satisfies it.
type RecordLister interface {
	ListByUser(ctx context.Context, databaseID, collectionID, userID string, limit int) ([]models.Document, error)
}

// HealthChecker reports database connectivity. *database.DB satisfies it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// PoolStats describes the persistence worker pool. *worker.Pool satisfies it.
type PoolStats interface {
	WorkerCount() int
	QueueSize() int
}

// Handler holds shared dependencies for the app's handlers.
type Handler struct {
	Identity identity.Provider
	Analyses Analyses
	Records  RecordLister
	DB       HealthChecker
	Pool     PoolStats

	// Document store addressing for record reads.
	DatabaseID   string
	CollectionID string

	MaxUploadBytes int64
	SecureCookies  bool // set the Secure flag on the session cookie
}

// NewHandler creates a new handler with all dependencies.
func NewHandler(provider identity.Provider, analyses Analyses, records RecordLister, db HealthChecker, pool PoolStats) *Handler {
	return &Handler{
		Identity:       provider,
		Analyses:       analyses,
		Records:        records,
		DB:             db,
		Pool:           pool,
		MaxUploadBytes: 10 << 20,
	}
}

// HealthCheck returns the app's health status.
// GET /api/v1/health
func (h *Handler) HealthCheck(c *gin.Context) {
	dbStatus := "healthy"
	if err := h.DB.HealthCheck(c.Request.Context()); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	c.JSON(http.StatusOK, models.HealthResponse{
		Status:       "ok",
		Version:      Version,
		Database:     dbStatus,
		Workers:      h.Pool.WorkerCount(),
		PersistQueue: h.Pool.QueueSize(),
	})
}
