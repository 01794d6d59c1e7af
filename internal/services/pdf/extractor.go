// Package pdf pulls the text layer out of uploaded PDFs.
//
// We use the ledongthuc/pdf library for text extraction.
// It's a pure Go implementation, so the analysis API needs no CGO.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/Shimizu-Technology/content-analyzer/internal/logger"
)

// ExtractionResult holds the output from a PDF text extraction.
type ExtractionResult struct {
	Pages       []string // trimmed text per page; Pages[i] is page i+1
	PageCount   int
	FailedPages []int // 1-based pages whose text layer could not be read
}

// Text joins the non-empty pages with newlines.
func (r *ExtractionResult) Text() string {
	var parts []string
	for _, p := range r.Pages {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}

// Extract reads a PDF held in memory and returns the text of every page.
//
// Go Pattern: We take []byte instead of a filename because the data comes
// from an HTTP upload. The pdf library wants an io.ReaderAt, which
// bytes.Reader provides.
func Extract(data []byte) (res *ExtractionResult, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("failed to open PDF: %v", r)
		}
	}()

	if !ValidatePDF(data) {
		return nil, fmt.Errorf("failed to open PDF: missing %%PDF- header")
	}

	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	res = &ExtractionResult{PageCount: pdfReader.NumPage()}
	res.Pages = make([]string, res.PageCount)

	for i := 1; i <= res.PageCount; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Image-only pages have no text layer; the caller may OCR them.
			logger.Warn("PDF page text extraction failed", zap.Int("page", i), zap.Error(err))
			res.FailedPages = append(res.FailedPages, i)
			continue
		}
		res.Pages[i-1] = strings.TrimSpace(text)
	}

	return res, nil
}

// ValidatePDF checks if the data looks like a valid PDF by checking the magic bytes.
func ValidatePDF(data []byte) bool {
	// PDF files start with "%PDF-"
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}
