package ai

import (
	"context"
)

// Completer is the single contract every AI provider implements: one prompt
// in, one completion out, under a caller-supplied output token budget.
// Implement this interface to add new providers (Gemini, Ollama, OpenAI, etc.)
type Completer interface {
	Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error)
	Name() string
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
