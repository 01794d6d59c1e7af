// Package middleware provides HTTP middleware for the app and the analysis API.
//
// Go Pattern: Middleware in Gin is a gin.HandlerFunc that calls c.Next() to
// continue the chain, or c.Abort() to stop processing.
package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Shimizu-Technology/content-analyzer/internal/logger"
	"github.com/Shimizu-Technology/content-analyzer/internal/models"
)

// SessionCookie holds the session token for browser requests.
const SessionCookie = "session"

const (
	sessionContextKey = "session"
	tokenContextKey   = "session_token"
)

// Verifier resolves a session token. identity.Provider satisfies it.
type Verifier interface {
	Verify(ctx context.Context, token string) (models.Session, error)
}

// LoadSession resolves the caller's session from the session cookie or an
// Authorization: Bearer header and stores it in the context. It never
// rejects a request; anonymous callers get models.SignedOut.
func LoadSession(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := models.SignedOut

		token := sessionToken(c)
		if token != "" {
			s, err := v.Verify(c.Request.Context(), token)
			if err == nil {
				session = s
				c.Set(tokenContextKey, token)
			} else {
				logger.Debug("Session rejected", zap.Error(err))
			}
		}

		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// RequireSessionPage sends anonymous visitors to the sign-in page, asking it
// to bring them back here afterwards.
func RequireSessionPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetSession(c).SignedIn {
			c.Next()
			return
		}
		target := "/sign-in/?redirect_url=" + url.QueryEscape(c.Request.URL.Path)
		c.Redirect(http.StatusFound, target)
		c.Abort()
	}
}

// RequireSessionAPI rejects anonymous API callers with 401.
func RequireSessionAPI() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetSession(c).SignedIn {
			c.Next()
			return
		}
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "unauthorized",
			Message: "Sign in first: send the session cookie or 'Authorization: Bearer <token>'",
			Code:    http.StatusUnauthorized,
		})
		c.Abort()
	}
}

// GetSession returns the session LoadSession stored, or SignedOut when the
// middleware did not run.
func GetSession(c *gin.Context) models.Session {
	val, exists := c.Get(sessionContextKey)
	if !exists {
		return models.SignedOut
	}
	s, ok := val.(models.Session)
	if !ok {
		return models.SignedOut
	}
	return s
}

// GetToken returns the verified token behind the current session, if any.
func GetToken(c *gin.Context) string {
	return c.GetString(tokenContextKey)
}

func sessionToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}
