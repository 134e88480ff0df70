package ai

import (
	"fmt"
	"strings"
)

// RequestHints carries approximate request geolocation so the model can
// localize examples without the client sending location explicitly.
type RequestHints struct {
	Latitude  string
	Longitude string
	City      string
	Country   string
}

const regularPrompt = "You are a friendly marketing assistant. " +
	"Help the user draft copy, slogans and campaign ideas. Keep your responses concise and helpful."

const toolsPrompt = "When the user asks about current weather, use the get_weather tool. " +
	"For substantial writing such as ad copy, email drafts or code, use the create_document tool " +
	"and update existing drafts with update_document instead of rewriting them inline. " +
	"Wait for user feedback before updating a document you just created. " +
	"Use request_suggestions only when the user asks for suggestions on a document."

// SystemPrompt assembles the system message for a generation. Reasoning
// models get the plain prompt since they run without tools.
func SystemPrompt(reasoning bool, hints RequestHints) string {
	parts := []string{regularPrompt}
	if !reasoning {
		parts = append(parts, toolsPrompt)
	}
	if hint := hints.render(); hint != "" {
		parts = append(parts, hint)
	}
	return strings.Join(parts, "\n\n")
}

func (h RequestHints) render() string {
	if h.Latitude == "" && h.Longitude == "" && h.City == "" && h.Country == "" {
		return ""
	}
	return fmt.Sprintf(
		"About the origin of the user's request:\n- lat: %s\n- lon: %s\n- city: %s\n- country: %s",
		h.Latitude, h.Longitude, h.City, h.Country,
	)
}
