package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketingvoice/internal/models"
)

// SaveImage records one generated image for a user.
func (s *Service) SaveImage(ctx context.Context, img *models.GeneratedImage) error {
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO generated_images (id, user_id, prompt, image_url, created_at) VALUES (?, ?, ?, ?, ?)",
		img.ID, img.UserID, img.Prompt, img.ImageURL, img.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	return nil
}

// GetImage fetches one generated image by id.
func (s *Service) GetImage(ctx context.Context, id string) (*models.GeneratedImage, error) {
	var img models.GeneratedImage
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, prompt, image_url, created_at FROM generated_images WHERE id = ?", id,
	).Scan(&img.ID, &img.UserID, &img.Prompt, &img.ImageURL, &img.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get image: %w", err)
	}
	return &img, nil
}

// ListImagesByUser returns the user's generated images, newest first.
func (s *Service) ListImagesByUser(ctx context.Context, userID string) ([]models.GeneratedImage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, prompt, image_url, created_at FROM generated_images WHERE user_id = ? ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	imgs := make([]models.GeneratedImage, 0)
	for rows.Next() {
		var img models.GeneratedImage
		if err := rows.Scan(&img.ID, &img.UserID, &img.Prompt, &img.ImageURL, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		imgs = append(imgs, img)
	}
	return imgs, rows.Err()
}

// DeleteImage removes one generated image.
func (s *Service) DeleteImage(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM generated_images WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
