package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketingvoice/internal/models"
)

// SaveDocument inserts a new model-drafted document.
func (s *Service) SaveDocument(ctx context.Context, doc *models.Document) error {
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO documents (id, user_id, title, kind, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		doc.ID, doc.UserID, doc.Title, doc.Kind, doc.Content, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

// GetDocument fetches a document by id.
func (s *Service) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, title, kind, content, created_at, updated_at FROM documents WHERE id = ?", id,
	).Scan(&doc.ID, &doc.UserID, &doc.Title, &doc.Kind, &doc.Content, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

// UpdateDocumentContent replaces the document body.
func (s *Service) UpdateDocumentContent(ctx context.Context, id, content string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE documents SET content = ?, updated_at = ? WHERE id = ?",
		content, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDocumentsByUser returns the user's documents, newest first.
func (s *Service) ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, title, kind, content, created_at, updated_at FROM documents WHERE user_id = ? ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]models.Document, 0)
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.Title, &doc.Kind, &doc.Content, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
