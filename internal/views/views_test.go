package views

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Shimizu-Technology/content-analyzer/internal/models"
)

func render(t *testing.T, name string, data any) string {
	t.Helper()
	tmpl, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		t.Fatalf("ExecuteTemplate(%s) error = %v", name, err)
	}
	return buf.String()
}

func TestAnalyzeIdle(t *testing.T) {
	out := render(t, Analyze, AnalyzePage{State: "idle"})

	if !strings.Contains(out, `id="analyze-btn" disabled>Analyze Now<`) {
		t.Error("idle page should render a disabled Analyze Now button")
	}
	if strings.Contains(out, `id="metrics"`) || strings.Contains(out, "Confirm Logout") {
		t.Error("idle page should show neither metrics nor the logout dialog")
	}
	if !strings.Contains(out, `id="loading-overlay" hidden`) {
		t.Error("loading overlay should be hidden when idle")
	}
}

func TestAnalyzeSuccessEscapesText(t *testing.T) {
	grade := "7th and 8th grade"
	out := render(t, Analyze, AnalyzePage{
		State: "success",
		Text:  "<b>Hello</b> & **bold**",
		Metrics: &models.Metrics{
			WordCount:        1,
			ReadabilityGrade: &grade,
			Hashtags:         []string{"#a", "#b"},
			Suggestions:      []string{"Add a link."},
		},
	})

	for _, want := range []string{
		"&lt;b&gt;Hello&lt;/b&gt; &amp; **bold**",
		`<strong id="word-count">1</strong>`,
		`<strong id="hashtags">#a, #b</strong>`,
		`<strong id="mentions">None</strong>`,
		"7th and 8th grade",
		"Flesch Reading Ease: <strong>N/A</strong>",
		"<li>Add a link.</li>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestAnalyzeLoadingAndLogout(t *testing.T) {
	out := render(t, Analyze, AnalyzePage{State: "loading", ShowLogout: true})

	if !strings.Contains(out, "Analyzing...</button>") {
		t.Error("loading page should relabel the button")
	}
	if strings.Contains(out, `id="loading-overlay" hidden`) {
		t.Error("loading overlay should be visible")
	}
	for _, want := range []string{"Confirm Logout", `href="/analyze">Cancel</a>`, `action="/logout"`} {
		if !strings.Contains(out, want) {
			t.Errorf("logout dialog missing %q", want)
		}
	}
}

func TestHomeModal(t *testing.T) {
	closed := render(t, Home, HomePage{Year: 2026})
	if strings.Contains(closed, `id="auth-modal"`) {
		t.Error("modal should be closed by default")
	}

	open := render(t, Home, HomePage{ShowAuthOptions: true, Year: 2026})
	for _, want := range []string{`href="/sign-in/">Login</a>`, `href="/sign-up/">Sign Up</a>`, `class="close-btn" href="/"`} {
		if !strings.Contains(open, want) {
			t.Errorf("modal missing %q", want)
		}
	}
}

func TestSignInKeepsRedirect(t *testing.T) {
	out := render(t, SignIn, AuthPage{RedirectURL: "/analyze", Error: "invalid email or password"})
	if !strings.Contains(out, `name="redirect_url" value="/analyze"`) {
		t.Error("sign-in form should carry redirect_url")
	}
	if !strings.Contains(out, "invalid email or password") {
		t.Error("sign-in form should show the error")
	}
}
