package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrNoRenderer means no pdftoppm binary was configured or found.
var ErrNoRenderer = errors.New("pdftoppm is not installed")

const (
	renderDPI            = 200 // resolution the OCR step expects
	maxPageImageBytes    = 50 << 20
	defaultRenderTimeout = 30 * time.Second
)

// Renderer rasterizes single PDF pages with poppler's pdftoppm so pages
// without a readable text layer can be OCRed.
type Renderer struct {
	binary  string
	timeout time.Duration
}

// NewRenderer returns a Renderer running binary. An empty binary yields a
// renderer that always returns ErrNoRenderer.
func NewRenderer(binary string) *Renderer {
	return &Renderer{binary: binary, timeout: defaultRenderTimeout}
}

// RenderPage returns page (1-based) of the PDF in data as a PNG.
func (r *Renderer) RenderPage(ctx context.Context, data []byte, page int) ([]byte, error) {
	if r.binary == "" {
		return nil, ErrNoRenderer
	}
	if page < 1 {
		return nil, fmt.Errorf("invalid page number: %d (must be >= 1)", page)
	}

	dir, err := os.MkdirTemp("", "render-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	root := filepath.Join(dir, "page")
	n := strconv.Itoa(page)
	cmd := exec.CommandContext(ctx, r.binary,
		"-f", n,
		"-l", n,
		"-r", strconv.Itoa(renderDPI),
		"-png",
		"-singlefile",
		in,
		root,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("pdftoppm timeout on page %d: %w", page, ctx.Err())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("pdftoppm failed on page %d: %s", page, msg)
		}
		return nil, fmt.Errorf("pdftoppm failed on page %d: %w", page, err)
	}

	out := root + ".png"
	info, err := os.Stat(out)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm produced no image for page %d: %w", page, err)
	}
	if info.Size() > maxPageImageBytes {
		return nil, fmt.Errorf("page %d image exceeds limit: %d bytes", page, info.Size())
	}
	return os.ReadFile(out)
}
