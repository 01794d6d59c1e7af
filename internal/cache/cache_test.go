package cache

import (
	"context"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	a := Key(".png", []byte("same bytes"))
	if a != Key(".png", []byte("same bytes")) {
		t.Error("Key() is not deterministic")
	}
	if a == Key(".pdf", []byte("same bytes")) {
		t.Error("Key() should depend on the extension")
	}
	if a == Key(".png", []byte("other bytes")) {
		t.Error("Key() should depend on the content")
	}
	if len(a) != 64 {
		t.Errorf("len(Key()) = %d, want 64 hex chars", len(a))
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := New(context.Background(), "http://not-redis", time.Minute); err == nil {
		t.Fatal("New() with non-redis scheme should fail")
	}
}
