// analyzer.go is the analysis API: it extracts text from an uploaded PDF or
// image and scores it.
//
// POST /api/analyze: multipart "file", or JSON {"text": "..."}
// GET  /api/health
//
// Errors use the {"error": "..."} body the app's analysis client reads.
package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Shimizu-Technology/content-analyzer/internal/cache"
	"github.com/Shimizu-Technology/content-analyzer/internal/logger"
	"github.com/Shimizu-Technology/content-analyzer/internal/metrics"
	"github.com/Shimizu-Technology/content-analyzer/internal/models"
	pdfservice "github.com/Shimizu-Technology/content-analyzer/internal/services/pdf"
	"github.com/Shimizu-Technology/content-analyzer/internal/services/textstats"
	"github.com/Shimizu-Technology/content-analyzer/internal/services/upload"
)

// NoTextWarning accompanies an upload in which nothing readable was found.
const NoTextWarning = "No text detected."

// allowedExtensions are the upload types the analysis API accepts.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".bmp":  true,
	".tiff": true,
}

// Recognizer reads text out of an image. *ocr.Tesseract satisfies it.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// PageRenderer rasterizes one PDF page. *pdf.Renderer satisfies it.
type PageRenderer interface {
	RenderPage(ctx context.Context, data []byte, page int) ([]byte, error)
}

// ResultCache remembers earlier analyses. *cache.Client satisfies it.
type ResultCache interface {
	Get(ctx context.Context, key string) (*models.AnalysisResult, bool, error)
	Set(ctx context.Context, key string, res *models.AnalysisResult) error
}

// AnalyzerHandler serves the analysis API.
type AnalyzerHandler struct {
	OCR   Recognizer
	Cache ResultCache // nil disables caching

	// PDF extracts a PDF's text layer; pdf.Extract unless a test replaces it.
	PDF func(data []byte) (*pdfservice.ExtractionResult, error)
	// Pages renders PDF pages whose text layer failed so they can be OCRed.
	// nil leaves those pages out.
	Pages PageRenderer

	MaxUploadBytes int64
}

// NewAnalyzerHandler creates the analysis API handler. rc may be nil.
func NewAnalyzerHandler(ocr Recognizer, rc ResultCache, maxUploadBytes int64) *AnalyzerHandler {
	return &AnalyzerHandler{
		OCR:            ocr,
		Cache:          rc,
		PDF:            pdfservice.Extract,
		MaxUploadBytes: maxUploadBytes,
	}
}

// Health reports liveness.
// GET /api/health
func (h *AnalyzerHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Analyze extracts and scores text.
// POST /api/analyze
func (h *AnalyzerHandler) Analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	if isJSON(c.ContentType()) {
		h.analyzeText(c)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		if isTooLarge(err) {
			apiError(c, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		apiError(c, http.StatusBadRequest, "No file part named 'file'")
		return
	}

	fh, problem := formFile(form)
	if fh == nil {
		apiError(c, http.StatusBadRequest, problem)
		return
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExtensions[ext] {
		apiError(c, http.StatusUnsupportedMediaType, "Unsupported file type")
		return
	}

	data, err := readFormFile(fh)
	if err != nil {
		apiError(c, http.StatusInternalServerError, err.Error())
		return
	}

	ctx := c.Request.Context()
	key := cache.Key(ext, data)
	if res := h.cached(ctx, key); res != nil {
		c.JSON(http.StatusOK, res)
		return
	}

	source, text, err := h.extract(ctx, ext, data)
	if err != nil {
		logger.Error("Extraction failed",
			zap.String("file", fh.Filename),
			zap.String("source", source),
			zap.Error(err),
		)
		apiError(c, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.ExtractionsTotal.WithLabelValues(source).Inc()

	if strings.TrimSpace(text) == "" {
		c.JSON(http.StatusOK, gin.H{
			"source":         source,
			"extracted_text": "",
			"metrics":        gin.H{},
			"warning":        NoTextWarning,
		})
		return
	}

	res := &models.AnalysisResult{
		Source:        source,
		ExtractedText: text,
		Metrics:       textstats.Analyze(text),
	}
	h.store(ctx, key, res)
	c.JSON(http.StatusOK, res)
}

func (h *AnalyzerHandler) analyzeText(c *gin.Context) {
	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		if isTooLarge(err) {
			apiError(c, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
	}

	text := strings.TrimSpace(body.Text)
	if text == "" {
		apiError(c, http.StatusBadRequest, "No text provided")
		return
	}

	metrics.ExtractionsTotal.WithLabelValues("raw_text").Inc()
	c.JSON(http.StatusOK, models.AnalysisResult{
		Source:        "raw_text",
		ExtractedText: text,
		Metrics:       textstats.Analyze(text),
	})
}

// extract routes by extension, except that content sniffed as PDF is always
// read as a PDF since tesseract cannot open one.
func (h *AnalyzerHandler) extract(ctx context.Context, ext string, data []byte) (string, string, error) {
	if ext == ".pdf" || mimetype.Detect(data).Is("application/pdf") {
		res, err := h.PDF(data)
		if err != nil {
			return "pdf", "", err
		}
		if err := h.ocrFailedPages(ctx, data, res); err != nil {
			return "pdf", "", err
		}
		return "pdf", res.Text(), nil
	}

	text, err := h.OCR.Recognize(ctx, data)
	return "image", text, err
}

// ocrFailedPages fills in pages without a readable text layer by rendering
// them and running OCR on the image.
func (h *AnalyzerHandler) ocrFailedPages(ctx context.Context, data []byte, res *pdfservice.ExtractionResult) error {
	if len(res.FailedPages) == 0 {
		return nil
	}
	if h.Pages == nil {
		logger.Warn("Skipping PDF pages without a text layer; no page renderer configured",
			zap.Ints("pages", res.FailedPages))
		return nil
	}

	for _, page := range res.FailedPages {
		img, err := h.Pages.RenderPage(ctx, data, page)
		if err != nil {
			return fmt.Errorf("render page %d: %w", page, err)
		}
		text, err := h.OCR.Recognize(ctx, img)
		if err != nil {
			return fmt.Errorf("ocr page %d: %w", page, err)
		}
		if page <= len(res.Pages) {
			res.Pages[page-1] = text
		}
	}
	metrics.ExtractionsTotal.WithLabelValues("pdf_ocr").Add(float64(len(res.FailedPages)))
	return nil
}

func (h *AnalyzerHandler) cached(ctx context.Context, key string) *models.AnalysisResult {
	if h.Cache == nil {
		return nil
	}
	res, ok, err := h.Cache.Get(ctx, key)
	if err != nil {
		logger.Warn("Cache lookup failed", zap.Error(err))
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return res
}

func (h *AnalyzerHandler) store(ctx context.Context, key string, res *models.AnalysisResult) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Set(ctx, key, res); err != nil {
		logger.Warn("Cache store failed", zap.Error(err))
	}
}

// isJSON accepts application/json and the application/*+json family.
func isJSON(contentType string) bool {
	ct := strings.ToLower(contentType)
	return ct == "application/json" ||
		(strings.HasPrefix(ct, "application/") && strings.HasSuffix(ct, "+json"))
}

// formFile finds the upload, or says what is wrong with the request. A part
// sent with an empty filename is parsed as a plain value, which is how an
// empty file input arrives.
func formFile(form *multipart.Form) (*multipart.FileHeader, string) {
	if files := form.File[upload.FormField]; len(files) > 0 {
		if files[0].Filename == "" {
			return nil, "No selected file"
		}
		return files[0], ""
	}
	if _, ok := form.Value[upload.FormField]; ok {
		return nil, "No selected file"
	}
	return nil, "No file part named 'file'"
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func apiError(c *gin.Context, status int, msg string) {
	c.JSON(status, models.AnalysisError{Error: msg})
}
