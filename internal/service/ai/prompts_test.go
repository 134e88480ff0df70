package ai

import (
	"strings"
	"testing"
)

func TestSystemPromptIncludesToolGuidanceForChatModels(t *testing.T) {
	prompt := SystemPrompt(false, RequestHints{})
	if !strings.Contains(prompt, "get_weather") || !strings.Contains(prompt, "create_document") {
		t.Fatalf("tool guidance missing: %q", prompt)
	}
}

func TestSystemPromptOmitsToolGuidanceForReasoningModels(t *testing.T) {
	prompt := SystemPrompt(true, RequestHints{})
	if strings.Contains(prompt, "get_weather") {
		t.Fatalf("reasoning prompt should not mention tools: %q", prompt)
	}
	if !strings.Contains(prompt, "marketing assistant") {
		t.Fatalf("base prompt missing: %q", prompt)
	}
}

func TestSystemPromptRendersGeoHints(t *testing.T) {
	hints := RequestHints{Latitude: "37.56", Longitude: "126.97", City: "Seoul", Country: "KR"}
	prompt := SystemPrompt(false, hints)
	for _, want := range []string{"37.56", "126.97", "Seoul", "KR"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("hint %q missing from prompt %q", want, prompt)
		}
	}
	if got := SystemPrompt(false, RequestHints{}); strings.Contains(got, "origin of the user's request") {
		t.Fatalf("empty hints should not render: %q", got)
	}
}
