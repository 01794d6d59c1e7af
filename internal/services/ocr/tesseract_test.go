package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeBinary writes an executable shell script standing in for tesseract.
func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tesseract")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRecognizeReadsStdout(t *testing.T) {
	// Echo stdin back so the test sees exactly what was piped in.
	ocr := New(fakeBinary(t, "cat"), 1)

	got, err := ocr.Recognize(context.Background(), []byte("  Hello\n\n"))
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if got != "Hello" {
		t.Errorf("Recognize() = %q, want %q", got, "Hello")
	}
}

func TestRecognizeReportsStderr(t *testing.T) {
	ocr := New(fakeBinary(t, "echo 'Error in pixReadStream' >&2; exit 1"), 1)

	_, err := ocr.Recognize(context.Background(), []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "pixReadStream") {
		t.Fatalf("Recognize() error = %v, want stderr message", err)
	}
}

func TestRecognizeWithoutBinary(t *testing.T) {
	_, err := New("", 2).Recognize(context.Background(), []byte("x"))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Recognize() error = %v, want ErrUnavailable", err)
	}
}

func TestRecognizeWaitsForSlot(t *testing.T) {
	ocr := New(fakeBinary(t, "cat"), 1)
	if err := ocr.sem.Acquire(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	defer ocr.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ocr.Recognize(ctx, []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("Recognize() error = %v, want context.Canceled", err)
	}
}
