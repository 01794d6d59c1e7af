// Package docstore is the document store collaborator: a create-document call
// addressed by database id, collection id and document id, with a sentinel
// that asks the store to generate the id.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/Shimizu-Technology/content-analyzer/internal/models"
)

// UniqueID asks CreateDocument to generate a fresh identifier.
const UniqueID = "unique()"

// ErrInvalidID is returned for ids the store refuses to accept.
var ErrInvalidID = errors.New("invalid document id")

// Backend persists documents. *database.DB satisfies it.
type Backend interface {
	InsertDocument(ctx context.Context, d *models.Document) error
	ListDocuments(ctx context.Context, databaseID, collectionID, field, value string, limit int) ([]models.Document, error)
}

// Store creates and lists documents on top of a Backend.
type Store struct {
	backend Backend
}

// New creates a Store.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Caller-chosen ids: letters, digits, period, hyphen, underscore; may not
// start with a special character; at most 36 chars.
var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,35}$`)

// CreateDocument stores data as a JSON document. Pass UniqueID as documentID
// to have one generated.
func (s *Store) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (*models.Document, error) {
	if databaseID == "" || collectionID == "" {
		return nil, fmt.Errorf("database and collection ids are required")
	}

	id := documentID
	if id == UniqueID {
		id = uuid.New().String()
	} else if !validID.MatchString(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, documentID)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document %s: %w", id, err)
	}

	doc := &models.Document{
		ID:           id,
		DatabaseID:   databaseID,
		CollectionID: collectionID,
		Data:         payload,
	}
	if err := s.backend.InsertDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListByUser returns the stored records a user owns, newest first.
func (s *Store) ListByUser(ctx context.Context, databaseID, collectionID, userID string, limit int) ([]models.Document, error) {
	return s.backend.ListDocuments(ctx, databaseID, collectionID, "user_id", userID, limit)
}
