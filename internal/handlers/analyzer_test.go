package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/content-analyzer/internal/models"
	pdfservice "github.com/Shimizu-Technology/content-analyzer/internal/services/pdf"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeOCR struct {
	text  string
	err   error
	calls int
}

func (f *fakeOCR) Recognize(context.Context, []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

type memCache map[string]*models.AnalysisResult

func (m memCache) Get(_ context.Context, key string) (*models.AnalysisResult, bool, error) {
	res, ok := m[key]
	return res, ok, nil
}

func (m memCache) Set(_ context.Context, key string, res *models.AnalysisResult) error {
	m[key] = res
	return nil
}

func analyzerEngine(h *AnalyzerHandler) *gin.Engine {
	r := gin.New()
	r.GET("/api/health", h.Health)
	r.POST("/api/analyze", h.Analyze)
	return r
}

// multipartRequest builds POST /api/analyze. field "" sends no file part.
func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(content)
	} else {
		mw.WriteField("note", "no file here")
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(r *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]any
	json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestAnalyzerRejectsBadUploads(t *testing.T) {
	tests := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		wantStatus int
		wantError  string
	}{
		{
			name:       "no file part",
			req:        func(t *testing.T) *http.Request { return multipartRequest(t, "", "", nil) },
			wantStatus: http.StatusBadRequest,
			wantError:  "No file part named 'file'",
		},
		{
			name:       "empty filename",
			req:        func(t *testing.T) *http.Request { return multipartRequest(t, "file", "", []byte("x")) },
			wantStatus: http.StatusBadRequest,
			wantError:  "No selected file",
		},
		{
			name:       "unsupported extension",
			req:        func(t *testing.T) *http.Request { return multipartRequest(t, "file", "anim.gif", []byte("GIF89a")) },
			wantStatus: http.StatusUnsupportedMediaType,
			wantError:  "Unsupported file type",
		},
		{
			name: "too large",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "file", "big.png", bytes.Repeat([]byte("a"), 4096))
			},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantError:  "File too large",
		},
		{
			name: "empty text",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"text":"   "}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "No text provided",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ocr := &fakeOCR{text: "never"}
			r := analyzerEngine(NewAnalyzerHandler(ocr, nil, 1024))

			w, body := serve(r, tt.req(t))
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if body["error"] != tt.wantError {
				t.Errorf("error = %v, want %q", body["error"], tt.wantError)
			}
			if ocr.calls != 0 {
				t.Error("rejected uploads must not reach OCR")
			}
		})
	}
}

func TestAnalyzerImage(t *testing.T) {
	ocr := &fakeOCR{text: "Check out #golang today @gopher"}
	r := analyzerEngine(NewAnalyzerHandler(ocr, nil, 1<<20))

	w, body := serve(r, multipartRequest(t, "file", "POST.PNG", []byte("\x89PNG\r\n\x1a\nfake")))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if body["source"] != "image" || body["extracted_text"] != "Check out #golang today @gopher" {
		t.Errorf("body = %v", body)
	}
	m := body["metrics"].(map[string]any)
	if m["word_count"] != float64(5) {
		t.Errorf("word_count = %v, want 5", m["word_count"])
	}
	if tags := m["hashtags"].([]any); len(tags) != 1 || tags[0] != "#golang" {
		t.Errorf("hashtags = %v", tags)
	}
}

func TestAnalyzerPDF(t *testing.T) {
	ocr := &fakeOCR{}
	h := NewAnalyzerHandler(ocr, nil, 1<<20)
	h.PDF = func([]byte) (*pdfservice.ExtractionResult, error) {
		return &pdfservice.ExtractionResult{Pages: []string{"Quarterly results are in"}, PageCount: 1}, nil
	}

	w, body := serve(analyzerEngine(h), multipartRequest(t, "file", "report.pdf", []byte("%PDF-1.7")))
	if w.Code != http.StatusOK || body["source"] != "pdf" {
		t.Fatalf("status = %d, body = %v", w.Code, body)
	}
	if ocr.calls != 0 {
		t.Error("PDFs are read from their text layer, not OCR")
	}
}

// pageImages renders page N as the bytes "page-N".
type pageImages struct{ pages []int }

func (p *pageImages) RenderPage(_ context.Context, _ []byte, page int) ([]byte, error) {
	p.pages = append(p.pages, page)
	return []byte(fmt.Sprintf("page-%d", page)), nil
}

// pageOCR reads back the rendered page marker.
type pageOCR struct{}

func (pageOCR) Recognize(_ context.Context, img []byte) (string, error) {
	return "scanned " + string(img), nil
}

func TestAnalyzerPDFFallsBackToOCR(t *testing.T) {
	renderer := &pageImages{}
	h := NewAnalyzerHandler(pageOCR{}, nil, 1<<20)
	h.Pages = renderer
	h.PDF = func([]byte) (*pdfservice.ExtractionResult, error) {
		return &pdfservice.ExtractionResult{
			Pages:       []string{"Intro", "", "Outro"},
			PageCount:   3,
			FailedPages: []int{2},
		}, nil
	}

	w, body := serve(analyzerEngine(h), multipartRequest(t, "file", "scan.pdf", []byte("%PDF-1.7")))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %v", w.Code, body)
	}
	if want := "Intro\nscanned page-2\nOutro"; body["extracted_text"] != want {
		t.Errorf("extracted_text = %q, want %q", body["extracted_text"], want)
	}
	if len(renderer.pages) != 1 || renderer.pages[0] != 2 {
		t.Errorf("rendered pages = %v, want [2]", renderer.pages)
	}
}

func TestAnalyzerPDFWithoutRendererSkipsFailedPages(t *testing.T) {
	ocr := &fakeOCR{text: "never"}
	h := NewAnalyzerHandler(ocr, nil, 1<<20)
	h.PDF = func([]byte) (*pdfservice.ExtractionResult, error) {
		return &pdfservice.ExtractionResult{Pages: []string{"Intro", ""}, PageCount: 2, FailedPages: []int{2}}, nil
	}

	w, body := serve(analyzerEngine(h), multipartRequest(t, "file", "scan.pdf", []byte("%PDF-1.7")))
	if w.Code != http.StatusOK || body["extracted_text"] != "Intro" {
		t.Errorf("got %d %v", w.Code, body)
	}
	if ocr.calls != 0 {
		t.Error("no page images to OCR without a renderer")
	}
}

func TestAnalyzerAcceptsJSONSuffixTypes(t *testing.T) {
	r := analyzerEngine(NewAnalyzerHandler(&fakeOCR{}, nil, 1<<20))

	for _, ct := range []string{"application/json", "application/vnd.api+json", "Application/JSON; charset=utf-8"} {
		req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"text":"Learn Go"}`))
		req.Header.Set("Content-Type", ct)
		w, body := serve(r, req)
		if w.Code != http.StatusOK || body["source"] != "raw_text" {
			t.Errorf("%s: got %d %v", ct, w.Code, body)
		}
	}
}

func TestAnalyzerNoTextDetected(t *testing.T) {
	r := analyzerEngine(NewAnalyzerHandler(&fakeOCR{text: "  \n"}, nil, 1<<20))

	w, body := serve(r, multipartRequest(t, "file", "blank.jpg", []byte("jpeg")))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["warning"] != NoTextWarning || body["extracted_text"] != "" {
		t.Errorf("body = %v", body)
	}
	if m, ok := body["metrics"].(map[string]any); !ok || len(m) != 0 {
		t.Errorf("metrics = %v, want {}", body["metrics"])
	}
}

func TestAnalyzerExtractionFailure(t *testing.T) {
	r := analyzerEngine(NewAnalyzerHandler(&fakeOCR{err: errors.New("tesseract failed: bad image")}, nil, 1<<20))

	w, body := serve(r, multipartRequest(t, "file", "x.webp", []byte("RIFF")))
	if w.Code != http.StatusInternalServerError || body["error"] != "tesseract failed: bad image" {
		t.Errorf("status = %d, body = %v", w.Code, body)
	}
}

func TestAnalyzerRawText(t *testing.T) {
	r := analyzerEngine(NewAnalyzerHandler(&fakeOCR{}, nil, 1<<20))

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"text":"  Learn Go  "}`))
	req.Header.Set("Content-Type", "application/json")
	w, body := serve(r, req)

	if w.Code != http.StatusOK || body["source"] != "raw_text" || body["extracted_text"] != "Learn Go" {
		t.Errorf("status = %d, body = %v", w.Code, body)
	}
}

func TestAnalyzerCache(t *testing.T) {
	ocr := &fakeOCR{text: "cached words"}
	r := analyzerEngine(NewAnalyzerHandler(ocr, memCache{}, 1<<20))

	for i := 0; i < 2; i++ {
		w, body := serve(r, multipartRequest(t, "file", "same.png", []byte("same bytes")))
		if w.Code != http.StatusOK || body["extracted_text"] != "cached words" {
			t.Fatalf("request %d: status = %d, body = %v", i+1, w.Code, body)
		}
	}
	if ocr.calls != 1 {
		t.Errorf("OCR calls = %d, want 1 (second served from cache)", ocr.calls)
	}
}

func TestAnalyzerHealth(t *testing.T) {
	w := httptest.NewRecorder()
	analyzerEngine(NewAnalyzerHandler(&fakeOCR{}, nil, 1)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	b, _ := io.ReadAll(w.Body)
	if w.Code != http.StatusOK || string(b) != `{"status":"ok"}` {
		t.Errorf("health = %d %s", w.Code, b)
	}
}
