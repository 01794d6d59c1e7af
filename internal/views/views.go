// Package views holds the server-rendered pages. Templates are embedded so
// the server binary is self-contained.
package views

import (
	"embed"
	"html/template"
	"strconv"
	"strings"

	"github.com/Shimizu-Technology/content-analyzer/internal/models"
)

//go:embed templates/*.html
var files embed.FS

// Template names, as passed to gin's c.HTML.
const (
	Home    = "home.html"
	SignIn  = "sign_in.html"
	SignUp  = "sign_up.html"
	Analyze = "analyze.html"
)

// HomePage is the landing page.
type HomePage struct {
	Session         models.Session
	ShowAuthOptions bool
	Year            int
}

// AuthPage backs both the sign-in and sign-up forms.
type AuthPage struct {
	RedirectURL string
	Email       string
	Name        string
	Error       string
}

// AnalyzePage is the Analyze view in one lifecycle state.
type AnalyzePage struct {
	Session    models.Session
	State      string // idle, loading, success or error
	FileName   string
	Text       string
	Metrics    *models.Metrics
	Warning    string
	Error      string
	ShowLogout bool
}

// Loading reports whether an analysis is running for this user.
func (p AnalyzePage) Loading() bool {
	return p.State == "loading"
}

var funcs = template.FuncMap{
	"orNone": func(list []string) string {
		if len(list) == 0 {
			return "None"
		}
		return strings.Join(list, ", ")
	},
	"optFloat": func(f *float64) string {
		if f == nil {
			return "N/A"
		}
		return strconv.FormatFloat(*f, 'f', -1, 64)
	},
	"optString": func(s *string) string {
		if s == nil || *s == "" {
			return "N/A"
		}
		return *s
	},
}

// Load parses every page template.
func Load() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(files, "templates/*.html")
}
