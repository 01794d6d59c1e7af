// auth.go handles sign-in, sign-up and sign-out, both as HTML forms under
// /sign-in/* and /sign-up/* and as the JSON API under /api/v1/auth.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Shimizu-Technology/content-analyzer/internal/identity"
	"github.com/Shimizu-Technology/content-analyzer/internal/logger"
	"github.com/Shimizu-Technology/content-analyzer/internal/middleware"
	"github.com/Shimizu-Technology/content-analyzer/internal/models"
	"github.com/Shimizu-Technology/content-analyzer/internal/views"
)

// afterSignIn is where sign-in and sign-up land without a redirect_url.
const afterSignIn = "/analyze"

// SignInPage renders the sign-in form.
// GET /sign-in/*path
func (h *Handler) SignInPage(c *gin.Context) {
	if middleware.GetSession(c).SignedIn {
		c.Redirect(http.StatusFound, safeRedirect(c.Query("redirect_url")))
		return
	}
	c.HTML(http.StatusOK, views.SignIn, views.AuthPage{RedirectURL: c.Query("redirect_url")})
}

// SignInSubmit signs the user in and sends them on.
// POST /sign-in/*path
func (h *Handler) SignInSubmit(c *gin.Context) {
	var req models.LoginRequest
	page := views.AuthPage{
		RedirectURL: c.PostForm("redirect_url"),
		Email:       c.PostForm("email"),
	}

	if err := c.ShouldBind(&req); err != nil {
		page.Error = "Enter your email and password."
		c.HTML(http.StatusBadRequest, views.SignIn, page)
		return
	}

	_, token, err := h.Identity.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		status, msg := authFailure(err)
		page.Error = msg
		c.HTML(status, views.SignIn, page)
		return
	}

	h.setSessionCookie(c, token)
	c.Redirect(http.StatusSeeOther, safeRedirect(page.RedirectURL))
}

// SignUpPage renders the sign-up form.
// GET /sign-up/*path
func (h *Handler) SignUpPage(c *gin.Context) {
	if middleware.GetSession(c).SignedIn {
		c.Redirect(http.StatusFound, afterSignIn)
		return
	}
	c.HTML(http.StatusOK, views.SignUp, views.AuthPage{})
}

// SignUpSubmit creates the account, signs it in and opens the Analyze page.
// POST /sign-up/*path
func (h *Handler) SignUpSubmit(c *gin.Context) {
	var req models.RegisterRequest
	page := views.AuthPage{
		Email: c.PostForm("email"),
		Name:  c.PostForm("name"),
	}

	if err := c.ShouldBind(&req); err != nil {
		page.Error = "Name, a valid email and a password of at least 8 characters are required."
		c.HTML(http.StatusBadRequest, views.SignUp, page)
		return
	}

	_, token, err := h.Identity.SignUp(c.Request.Context(), req)
	if err != nil {
		status, msg := authFailure(err)
		page.Error = msg
		c.HTML(status, views.SignUp, page)
		return
	}

	h.setSessionCookie(c, token)
	c.Redirect(http.StatusSeeOther, afterSignIn)
}

// Logout ends the session and returns to the landing page. It is the
// confirm action of the Analyze page's logout dialog.
// POST /logout
func (h *Handler) Logout(c *gin.Context) {
	if token := middleware.GetToken(c); token != "" {
		if err := h.Identity.SignOut(c.Request.Context(), token); err != nil {
			logger.Warn("Sign-out failed", zap.Error(err))
		}
	}
	h.clearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, "/")
}

// Register creates a new user account.
// POST /api/v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Email, password (min 8 chars), and name are required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	user, token, err := h.Identity.SignUp(c.Request.Context(), req)
	if err != nil {
		h.authError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.AuthResponse{
		Token: token,
		User:  *user,
	})
}

// Login authenticates a user and returns a session token.
// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Email and password are required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	user, token, err := h.Identity.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.authError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{
		Token: token,
		User:  *user,
	})
}

// APILogout revokes the caller's token.
// POST /api/v1/auth/logout
func (h *Handler) APILogout(c *gin.Context) {
	if err := h.Identity.SignOut(c.Request.Context(), middleware.GetToken(c)); err != nil {
		logger.Warn("Sign-out failed", zap.Error(err))
	}
	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

// GetMe returns the current session.
// GET /api/v1/auth/me
func (h *Handler) GetMe(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.GetSession(c))
}

func (h *Handler) authError(c *gin.Context, err error) {
	status, msg := authFailure(err)
	code := "server_error"
	switch status {
	case http.StatusUnauthorized:
		code = "invalid_credentials"
	case http.StatusConflict:
		code = "email_taken"
	}
	c.JSON(status, models.ErrorResponse{Error: code, Message: msg, Code: status})
}

// authFailure maps identity errors onto a status and a message safe to show.
func authFailure(err error) (int, string) {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, identity.ErrEmailTaken):
		return http.StatusConflict, "An account with this email already exists"
	default:
		logger.Error("Identity provider error", zap.Error(err))
		return http.StatusInternalServerError, "Something went wrong. Please try again."
	}
}

func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, int(identity.SessionTTL.Seconds()), "/", "", h.SecureCookies, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.SecureCookies, true)
}

// safeRedirect keeps post-sign-in redirects on this site.
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return afterSignIn
	}
	return target
}
