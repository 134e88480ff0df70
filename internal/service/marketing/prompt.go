// Package marketing turns product descriptions into image-generation
// prompts, headlines and campaign assets.
package marketing

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

var (
	ErrMissingDescription = errors.New("description is required")
	ErrUnknownTemplate    = errors.New("unknown template")
)

// DefaultTemplate is used when the client does not pick one.
const DefaultTemplate = "instagram"

var templatePrompts = map[string]string{
	"instagram": "Create a professional Instagram post image with: ",
	"facebook":  "Design a Facebook ad banner that shows: ",
	"banner":    "Create a web banner advertisement featuring: ",
}

var templateStyles = map[string]string{
	"instagram": "professional photography, high quality, HD, square format, trending on social media, vibrant colors, perfect lighting, modern aesthetic, Instagram-worthy, lifestyle photography",
	"facebook":  "professional marketing material, engaging layout, clear branding, call to action, modern design, high contrast, attention-grabbing, social media optimized",
	"banner":    "clean design, web banner layout, digital ad, professional marketing style, modern typography, balanced composition, eye-catching visuals",
}

var brandStyles = map[string]string{
	"adidas":    "sporty, dynamic, urban, street style, athletic, modern, bold, energetic, Adidas three stripes logo, sportswear, athletic performance, no text overlays, clean design, product focus",
	"nike":      "athletic, dynamic, premium, innovative, bold, energetic, urban, Nike swoosh logo, sportswear, athletic performance, no text overlays, clean design, product focus",
	"puma":      "sporty, casual, street style, modern, vibrant, urban, Puma logo, sportswear, athletic performance, no text overlays, clean design, product focus",
	"starbucks": "premium coffee shop, warm atmosphere, green and white branding, modern cafe interior, barista, coffee art, cozy seating, professional coffee equipment, Starbucks siren logo, coffee cups, pastries, coffee beans, no text overlays, clean design, product focus",
	"aquapick":  "A square Instagram-style ad featuring the Aquapick water flosser as the main subject. The background is a vibrant gradient of clean blue tones with subtle water droplet textures. The sleek white water flosser device is positioned elegantly in the center, spraying a fine mist of water. Include the Aquapick logo prominently placed in the composition. The design is modern, minimal, and clean without any text overlays. Focus on dental care, oral hygiene, water flosser product, clean blue gradient background, water droplets, healthcare product, fresh, hygienic, professional product photography, minimalist design, no text, text-free",
}

const defaultBrandStyle = "professional, modern, clean, high-quality, premium, elegant, no text overlays, clean design, product focus"

var headlineKeywords = map[string][]string{
	"instagram": {"지금 바로", "새로운", "특별한", "한정판", "독점", "트렌디한", "스타일리시한"},
	"facebook":  {"혁신적인", "최고의", "당신을 위한", "특별한", "프리미엄", "독점적인"},
	"banner":    {"지금 바로", "특별한 기회", "한정 시간", "독점 혜택", "프리미엄"},
}

var brandPhrases = map[string]string{
	"adidas":    "스포츠의 혁신",
	"nike":      "Just Do It",
	"puma":      "Forever Faster",
	"starbucks": "스타벅스 커피",
	"aquapick":  "상쾌한 구강 관리",
}

const defaultBrandPhrase = "새로운 경험"

// PromptResult is the optimized prompt package for one description.
type PromptResult struct {
	Prompt      string `json:"prompt"`
	Headline    string `json:"headline"`
	Description string `json:"description"`
}

// BuildPrompt assembles the image prompt and headline for a template. The
// first word of the description selects the brand style.
func BuildPrompt(description, template string) (*PromptResult, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrMissingDescription
	}
	if template == "" {
		template = DefaultTemplate
	}
	prefix, ok := templatePrompts[template]
	if !ok {
		return nil, ErrUnknownTemplate
	}

	brand := strings.ToLower(strings.Fields(description)[0])
	brandStyle, ok := brandStyles[brand]
	if !ok {
		brandStyle = defaultBrandStyle
	}

	prompt := fmt.Sprintf("%s%s. %s, %s", prefix, description, templateStyles[template], brandStyle)

	shortDesc := description
	if runes := []rune(description); len(runes) > 60 {
		shortDesc = string(runes[:60]) + "..."
	}

	return &PromptResult{
		Prompt:      prompt,
		Headline:    buildHeadline(description, template, brand),
		Description: shortDesc,
	}, nil
}

func buildHeadline(description, template, brand string) string {
	keywords, ok := headlineKeywords[template]
	if !ok {
		keywords = headlineKeywords[DefaultTemplate]
	}
	keyword := keywords[rand.Intn(len(keywords))]

	phrase, ok := brandPhrases[brand]
	if !ok {
		phrase = defaultBrandPhrase
	}

	words := strings.Fields(description)
	if len(words) > 3 {
		words = words[:3]
	}
	lead := strings.Join(words, " ")

	switch template {
	case "instagram":
		return fmt.Sprintf("%s %s - %s", keyword, phrase, lead)
	case "facebook":
		return fmt.Sprintf("%s - %s %s", lead, keyword, phrase)
	case "banner":
		return fmt.Sprintf("%s %s 만나보세요!", keyword, phrase)
	default:
		return fmt.Sprintf("%s %s", keyword, phrase)
	}
}
