package marketing

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// TextGenerator produces one completion from a system and user prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

// ImageGenerator renders one image and returns its URL.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service generates combined copy-plus-image campaign assets.
type Service struct {
	text   TextGenerator
	images ImageGenerator
	log    zerolog.Logger
}

func NewService(text TextGenerator, images ImageGenerator, log zerolog.Logger) *Service {
	return &Service{text: text, images: images, log: log}
}

// Campaign is one generated marketing asset pair.
type Campaign struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

// GenerateCampaign produces marketing copy via the chat model and a
// matching image via the image provider.
func (s *Service) GenerateCampaign(ctx context.Context, input, template string) (*Campaign, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrMissingDescription
	}
	if template == "" {
		template = DefaultTemplate
	}

	system := fmt.Sprintf(
		"You are a marketing expert. Generate compelling marketing copy for a %s based on the following description. Keep it concise and engaging.",
		template,
	)
	copyText, err := s.text.GenerateText(ctx, system, input)
	if err != nil {
		return nil, fmt.Errorf("generate marketing copy: %w", err)
	}

	imagePrompt := fmt.Sprintf("Create a professional marketing image for %s based on: %s", template, input)
	imageURL, err := s.images.Generate(ctx, imagePrompt)
	if err != nil {
		return nil, fmt.Errorf("generate marketing image: %w", err)
	}

	s.log.Info().Str("template", template).Msg("campaign generated")
	return &Campaign{Text: copyText, Image: imageURL}, nil
}
