// documents.go backs the document store: schemaless JSON documents addressed
// by (database id, collection id, document id).
package database

import (
	"context"
	"fmt"

	"github.com/Shimizu-Technology/content-analyzer/internal/models"
)

// InsertDocument stores a document. The caller chooses the ID; created_at is
// filled in from the database clock.
func (db *DB) InsertDocument(ctx context.Context, d *models.Document) error {
	query := `
		INSERT INTO documents (id, database_id, collection_id, data)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := db.QueryRowContext(ctx, query,
		d.ID, d.DatabaseID, d.CollectionID, []byte(d.Data),
	).Scan(&d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert document %s: %w", d.ID, err)
	}
	return nil
}

// ListDocuments returns the newest documents in a collection whose top-level
// JSON field equals value.
func (db *DB) ListDocuments(ctx context.Context, databaseID, collectionID, field, value string, limit int) ([]models.Document, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}

	docs := []models.Document{}
	err := db.SelectContext(ctx, &docs, `
		SELECT id, database_id, collection_id, data, created_at
		FROM documents
		WHERE database_id = $1 AND collection_id = $2 AND data->>$3 = $4
		ORDER BY created_at DESC
		LIMIT $5`,
		databaseID, collectionID, field, value, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}
