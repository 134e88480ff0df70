package image

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"marketingvoice/internal/models"
)

var (
	ErrNotFound  = errors.New("image not found")
	ErrForbidden = errors.New("image belongs to another user")
)

// Generator renders one image and returns its URL.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Store is the persistence surface for image records.
type Store interface {
	SaveImage(ctx context.Context, img *models.GeneratedImage) error
	GetImage(ctx context.Context, id string) (*models.GeneratedImage, error)
	ListImagesByUser(ctx context.Context, userID string) ([]models.GeneratedImage, error)
	DeleteImage(ctx context.Context, id string) error
}

// Service renders images and records them per user.
type Service struct {
	generator Generator
	store     Store
	log       zerolog.Logger
}

func NewService(generator Generator, store Store, log zerolog.Logger) *Service {
	return &Service{generator: generator, store: store, log: log}
}

// Generate renders the prompt and records the result for the user.
func (s *Service) Generate(ctx context.Context, userID, prompt string) (*models.GeneratedImage, error) {
	if prompt == "" {
		return nil, errors.New("prompt is required")
	}
	if s.generator == nil {
		return nil, ErrNotConfigured
	}

	url, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	img := &models.GeneratedImage{
		ID:       uuid.NewString(),
		UserID:   userID,
		Prompt:   prompt,
		ImageURL: url,
	}
	if err := s.store.SaveImage(ctx, img); err != nil {
		return nil, fmt.Errorf("record generated image: %w", err)
	}
	s.log.Info().Str("image_id", img.ID).Str("user_id", userID).Msg("image generated")
	return img, nil
}

// List returns the user's generated images, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]models.GeneratedImage, error) {
	return s.store.ListImagesByUser(ctx, userID)
}

// Delete removes an owned image record.
func (s *Service) Delete(ctx context.Context, userID, imageID string) error {
	img, err := s.store.GetImage(ctx, imageID)
	if err != nil {
		return ErrNotFound
	}
	if img.UserID != userID {
		return ErrForbidden
	}
	return s.store.DeleteImage(ctx, imageID)
}
