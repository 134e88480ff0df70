// Package image calls the configured image-generation provider and keeps
// per-user records of the results.
package image

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"marketingvoice/internal/config"
)

var ErrNotConfigured = errors.New("image provider not configured")

const generateTimeout = 120 * time.Second

// The provider renders the literal scene; the suffix keeps output quality
// consistent across prompts.
const promptSuffix = " - Create this exact scene with high quality, detailed rendering, professional photography style."

// Client talks to an image-generation HTTP endpoint.
type Client struct {
	http     *resty.Client
	endpoint string
	log      zerolog.Logger
}

func NewClient(cfg config.ImageConfig, log zerolog.Logger) *Client {
	if cfg.Endpoint == "" {
		return nil
	}
	client := resty.New().SetTimeout(generateTimeout)
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Key "+cfg.APIKey)
	}
	return &Client{http: client, endpoint: cfg.Endpoint, log: log}
}

type generateRequest struct {
	Prompt        string  `json:"prompt"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	GuidanceScale float64 `json:"guidance_scale"`
}

type generateResponse struct {
	Images []imageItem `json:"images"`
	Image  string      `json:"image,omitempty"`
	Error  string      `json:"error,omitempty"`
	Detail string      `json:"detail,omitempty"`
}

type imageItem struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
}

var base64Pattern = regexp.MustCompile(`^[A-Za-z0-9+/=]+$`)

// Generate renders one 1024x1024 image and returns its URL. Providers that
// answer with raw base64 get wrapped into a data URL.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}
	if prompt == "" {
		return "", errors.New("prompt is required")
	}

	req := generateRequest{
		Prompt:        prompt + promptSuffix,
		Width:         1024,
		Height:        1024,
		GuidanceScale: 10.0,
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("image provider call failed: %w", err)
	}

	body := resp.Bytes()
	if resp.StatusCode() >= 400 {
		var errResp generateResponse
		if parseErr := json.Unmarshal(body, &errResp); parseErr == nil {
			if errResp.Error != "" {
				return "", fmt.Errorf("image provider error: %s", errResp.Error)
			}
			if errResp.Detail != "" {
				return "", fmt.Errorf("image provider error: %s", errResp.Detail)
			}
		}
		return "", fmt.Errorf("image provider returned status %d", resp.StatusCode())
	}

	var result generateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse image provider response: %w", err)
	}

	url := extractImageURL(&result)
	if url == "" {
		c.log.Error().Str("body", string(body)).Msg("no image url in provider response")
		return "", errors.New("no valid image url in provider response")
	}
	return url, nil
}

func extractImageURL(resp *generateResponse) string {
	if len(resp.Images) > 0 && resp.Images[0].URL != "" {
		return normalizeImageURL(resp.Images[0].URL)
	}
	if resp.Image != "" {
		return normalizeImageURL(resp.Image)
	}
	return ""
}

func normalizeImageURL(raw string) string {
	if isBase64Image(raw) {
		return "data:image/jpeg;base64," + raw
	}
	return raw
}

func isBase64Image(s string) bool {
	return len(s) > 100 && base64Pattern.MatchString(s)
}
