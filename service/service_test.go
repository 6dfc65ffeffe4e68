package service

import (
	"testing"

	"photo-intel-pipeline/config"
)

func TestNewLLMClientSelection(t *testing.T) {
	tests := []struct {
		provider string
		expected string
	}{
		{"openai", "ChatGPT"},
		{"gemini", "Gemini"},
		{"stub", "Stub"},
		{"", "ChatGPT"},
		{"unknown", "ChatGPT"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := &config.Config{
				LLMProvider:     tt.provider,
				OpenAIAPIKey:    "k",
				OpenAIFastModel: "fast",
				OpenAIDeepModel: "deep",
				GeminiAPIKey:    "k",
				GeminiFastModel: "fast",
				GeminiDeepModel: "deep",
			}
			client := NewLLMClient(cfg)
			if client.SourceName() != tt.expected {
				t.Errorf("NewLLMClient(%q).SourceName() = %q, want %q", tt.provider, client.SourceName(), tt.expected)
			}
		})
	}
}
