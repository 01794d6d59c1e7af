package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Shimizu-Technology/content-analyzer/internal/models"
)

type fakeBackend struct {
	inserted []*models.Document
	err      error
}

func (f *fakeBackend) InsertDocument(_ context.Context, d *models.Document) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, d)
	return nil
}

func (f *fakeBackend) ListDocuments(_ context.Context, databaseID, collectionID, field, value string, _ int) ([]models.Document, error) {
	var out []models.Document
	for _, d := range f.inserted {
		var m map[string]any
		_ = json.Unmarshal(d.Data, &m)
		if d.DatabaseID == databaseID && d.CollectionID == collectionID && m[field] == value {
			out = append(out, *d)
		}
	}
	return out, nil
}

func TestCreateDocumentGeneratesID(t *testing.T) {
	backend := &fakeBackend{}
	store := New(backend)

	rec := models.StoredRecord{UserID: "u1", FileName: "post.pdf", ExtractedText: "Hello"}
	doc, err := store.CreateDocument(context.Background(), "db", "col", UniqueID, rec)
	if err != nil {
		t.Fatalf("CreateDocument() error = %v", err)
	}
	if _, err := uuid.Parse(doc.ID); err != nil {
		t.Errorf("generated id %q is not a uuid", doc.ID)
	}

	var got map[string]string
	if err := json.Unmarshal(doc.Data, &got); err != nil {
		t.Fatalf("stored data is not JSON: %v", err)
	}
	want := map[string]string{"user_id": "u1", "fileName": "post.pdf", "extractedText": "Hello"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("data[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestCreateDocumentIDs(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"caller chosen", "report-2024.v1", false},
		{"leading special char", "_hidden", true},
		{"too long", "a234567890123456789012345678901234567", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&fakeBackend{}).CreateDocument(context.Background(), "db", "col", tt.id, map[string]string{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateDocument(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidID) {
				t.Errorf("error = %v, want ErrInvalidID", err)
			}
		})
	}
}

func TestCreateDocumentBackendError(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := New(&fakeBackend{err: boom}).CreateDocument(context.Background(), "db", "col", UniqueID, struct{}{})
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
}

func TestListByUser(t *testing.T) {
	store := New(&fakeBackend{})
	ctx := context.Background()
	for _, uid := range []string{"alice", "bob", "alice"} {
		if _, err := store.CreateDocument(ctx, "db", "col", UniqueID, models.StoredRecord{UserID: uid}); err != nil {
			t.Fatal(err)
		}
	}

	docs, err := store.ListByUser(ctx, "db", "col", "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Errorf("ListByUser(alice) returned %d docs, want 2", len(docs))
	}
}
