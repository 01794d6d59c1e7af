// analyze.go runs an analysis for the signed-in user.
//
// POST /analyze        : the Analyze page form (multipart, field "file")
// POST /api/v1/analyze : JSON mirror; multipart, or the raw file as the body
// GET  /api/v1/records : the caller's stored records
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Shimizu-Technology/content-analyzer/internal/logger"
	"github.com/Shimizu-Technology/content-analyzer/internal/middleware"
	"github.com/Shimizu-Technology/content-analyzer/internal/models"
	"github.com/Shimizu-Technology/content-analyzer/internal/services/analyze"
	"github.com/Shimizu-Technology/content-analyzer/internal/services/upload"
	"github.com/Shimizu-Technology/content-analyzer/internal/views"
)

// tooLargeMessage is shown when the upload exceeds the request body limit.
const tooLargeMessage = "File too large"

// AnalyzeSubmit handles the Analyze page form. With no file it re-renders the
// idle page without calling the analysis API.
// POST /analyze
func (h *Handler) AnalyzeSubmit(c *gin.Context) {
	session := middleware.GetSession(c)
	page := views.AnalyzePage{Session: session, State: string(analyze.StateIdle)}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	sel, err := h.formSelection(c)
	if err != nil {
		if isTooLarge(err) {
			page.State = string(analyze.StateError)
			page.Error = tooLargeMessage
			c.HTML(http.StatusRequestEntityTooLarge, views.Analyze, page)
			return
		}
		// Nothing selected: stay idle, the button stays disabled.
		c.HTML(http.StatusOK, views.Analyze, page)
		return
	}

	out, err := h.Analyses.Run(c.Request.Context(), session, sel)
	if errors.Is(err, analyze.ErrInFlight) {
		page.State = string(analyze.StateLoading)
		c.HTML(http.StatusOK, views.Analyze, page)
		return
	}
	if err != nil {
		logger.Error("Analyze failed", zap.Error(err))
		page.State = string(analyze.StateError)
		page.Error = "Analysis failed"
		c.HTML(http.StatusInternalServerError, views.Analyze, page)
		return
	}

	page.State = string(out.State)
	page.FileName = out.FileName
	page.Text = out.Text
	page.Metrics = out.Metrics
	page.Warning = out.Warning
	page.Error = out.Error
	c.HTML(http.StatusOK, views.Analyze, page)
}

// APIAnalyze is the JSON form of AnalyzeSubmit. A non-multipart body is taken
// as the file itself, named by the X-Filename header.
// POST /api/v1/analyze
func (h *Handler) APIAnalyze(c *gin.Context) {
	session := middleware.GetSession(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	var (
		sel *upload.Selection
		err error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		sel, err = h.formSelection(c)
	} else {
		sel, err = upload.FromRaw(c.Request.Body, c.GetHeader("X-Filename"), c.ContentType())
	}
	if err != nil {
		switch {
		case isTooLarge(err):
			c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
				Error:   "file_too_large",
				Message: tooLargeMessage,
				Code:    http.StatusRequestEntityTooLarge,
			})
		case errors.Is(err, upload.ErrNoFile):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "no_file",
				Message: "Upload a file in the 'file' form field, or as the request body with X-Filename",
				Code:    http.StatusBadRequest,
			})
		default:
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "read_error",
				Message: "Failed to read uploaded file",
				Code:    http.StatusBadRequest,
			})
		}
		return
	}

	out, err := h.Analyses.Run(c.Request.Context(), session, sel)
	if errors.Is(err, analyze.ErrInFlight) {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "analysis_in_progress",
			Message: "An analysis is already running for this account",
			Code:    http.StatusConflict,
		})
		return
	}
	if err != nil {
		logger.Error("Analyze failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "server_error",
			Message: "Analysis failed",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	if out.State == analyze.StateError {
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error:   "analysis_failed",
			Message: out.Error,
			Code:    http.StatusBadGateway,
		})
		return
	}

	c.JSON(http.StatusOK, models.AnalyzeResponse{
		State:    string(out.State),
		FileName: out.FileName,
		Text:     out.Text,
		Metrics:  out.RawMetrics,
		Warning:  out.Warning,
		Persist:  persistStatus(out),
	})
}

// ListRecords returns the caller's stored records, newest first.
// GET /api/v1/records?limit=20
func (h *Handler) ListRecords(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}

	docs, err := h.Records.ListByUser(c.Request.Context(), h.DatabaseID, h.CollectionID, middleware.GetSession(c).UserID, limit)
	if err != nil {
		logger.Error("Failed to list records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to list records",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	if docs == nil {
		docs = []models.Document{}
	}
	c.JSON(http.StatusOK, gin.H{"records": docs, "count": len(docs)})
}

func (h *Handler) formSelection(c *gin.Context) (*upload.Selection, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if isTooLarge(err) {
			return nil, err
		}
		return nil, upload.ErrNoFile
	}
	return upload.FromForm(form)
}

// persistStatus reports the stored record write if it has already finished.
// Usually it has not, and the worker logs the outcome.
func persistStatus(out *analyze.Outcome) string {
	if out.Persisted == nil {
		return "skipped"
	}
	select {
	case res := <-out.Persisted:
		if res.Err != nil {
			return "failed"
		}
		return "stored"
	default:
		return "queued"
	}
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
