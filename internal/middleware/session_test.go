package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/content-analyzer/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type tokenVerifier map[string]models.Session

func (v tokenVerifier) Verify(_ context.Context, token string) (models.Session, error) {
	s, ok := v[token]
	if !ok {
		return models.SignedOut, errors.New("unknown token")
	}
	return s, nil
}

var alice = models.Session{SignedIn: true, UserID: "u-1", Email: "alice@example.com"}

func newSessionRouter(extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(LoadSession(tokenVerifier{"good": alice}))
	handlers := append(extra, func(c *gin.Context) {
		c.String(http.StatusOK, "%s|%s", GetSession(c).UserID, GetToken(c))
	})
	r.GET("/who", handlers...)
	r.GET("/api/who", handlers...)
	return r
}

func TestLoadSession(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		bearer string
		want   string
	}{
		{name: "anonymous", want: "|"},
		{name: "cookie", cookie: "good", want: "u-1|good"},
		{name: "bearer", bearer: "good", want: "u-1|good"},
		{name: "bad token", cookie: "forged", want: "|"},
	}

	r := newSessionRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/who", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Body.String() != tt.want {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.want)
			}
		})
	}
}

func TestRequireSessionPageRedirects(t *testing.T) {
	r := newSessionRouter(RequireSessionPage())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/who", nil))

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/sign-in/?redirect_url=%2Fwho" {
		t.Errorf("Location = %q", loc)
	}
}

func TestRequireSessionAPI(t *testing.T) {
	r := newSessionRouter(RequireSessionAPI())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/who", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/who", nil)
	req.Header.Set("Authorization", "Bearer good")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Body.String(), "u-1") {
		t.Errorf("signed-in response = %d %q", w.Code, w.Body.String())
	}
}

func TestGetSessionWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if GetSession(c).SignedIn {
		t.Error("GetSession() without LoadSession should be signed out")
	}
}
