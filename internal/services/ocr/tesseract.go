// Package ocr runs the tesseract binary over uploaded images.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"golang.org/x/sync/semaphore"
)

// ErrUnavailable means no tesseract binary was configured or found.
var ErrUnavailable = errors.New("tesseract is not installed")

// maxOutputBytes caps recognized text per image.
const maxOutputBytes = 10<<20 + 1

// Tesseract recognizes text in images. At most `limit` processes run at once;
// extra callers wait for a slot or for their context to end.
type Tesseract struct {
	binary string
	sem    *semaphore.Weighted
}

// New returns a Tesseract that runs binary with at most limit concurrent
// processes. An empty binary yields a recognizer that always returns
// ErrUnavailable.
func New(binary string, limit int64) *Tesseract {
	if limit < 1 {
		limit = 1
	}
	return &Tesseract{binary: binary, sem: semaphore.NewWeighted(limit)}
}

// Recognize feeds image to tesseract on stdin and returns the trimmed text it
// prints. Tesseract decodes every format the analysis API accepts, and
// flattens alpha channels itself.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	if t.binary == "" {
		return "", ErrUnavailable
	}

	if err := t.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer t.sem.Release(1)

	cmd := exec.CommandContext(ctx, t.binary, "stdin", "stdout")
	cmd.Stdin = bytes.NewReader(image)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start tesseract: %w", err)
	}

	out, readErr := io.ReadAll(io.LimitReader(stdout, maxOutputBytes))
	waitErr := cmd.Wait()

	if readErr != nil {
		return "", fmt.Errorf("read tesseract output: %w", readErr)
	}
	if len(out) >= maxOutputBytes {
		return "", fmt.Errorf("tesseract output exceeds limit")
	}
	if waitErr != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("tesseract failed: %s", msg)
		}
		return "", fmt.Errorf("tesseract failed: %w", waitErr)
	}

	return strings.TrimSpace(string(out)), nil
}
