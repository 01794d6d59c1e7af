// pages.go serves the landing page, the Analyze page shell and the
// catch-all redirect.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/content-analyzer/internal/middleware"
	"github.com/Shimizu-Technology/content-analyzer/internal/models"
	"github.com/Shimizu-Technology/content-analyzer/internal/services/analyze"
	"github.com/Shimizu-Technology/content-analyzer/internal/views"
)

// Home renders the landing page. ?get_started=1 opens the sign-in/sign-up
// dialog.
// GET /
func (h *Handler) Home(c *gin.Context) {
	c.HTML(http.StatusOK, views.Home, views.HomePage{
		Session:         middleware.GetSession(c),
		ShowAuthOptions: c.Query("get_started") == "1",
		Year:            time.Now().Year(),
	})
}

// AnalyzePage renders the Analyze view with nothing selected. ?logout=1
// opens the logout confirmation dialog.
// GET /analyze
func (h *Handler) AnalyzePage(c *gin.Context) {
	session := middleware.GetSession(c)

	state := analyze.StateIdle
	if h.Analyses.Loading(session.UserID) {
		state = analyze.StateLoading
	}

	c.HTML(http.StatusOK, views.Analyze, views.AnalyzePage{
		Session:    session,
		State:      string(state),
		ShowLogout: c.Query("logout") == "1",
	})
}

// NotFound sends unknown pages home. Unknown API paths get a JSON 404 so
// API clients are not handed an HTML page.
func (h *Handler) NotFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "No such endpoint",
			Code:    http.StatusNotFound,
		})
		return
	}
	c.Redirect(http.StatusFound, "/")
}
