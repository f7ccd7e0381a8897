package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jwebster45206/solo-dm/internal/config"
	"github.com/jwebster45206/solo-dm/pkg/chat"
)

// LLMService defines the interface for interacting with the LLM API
type LLMService interface {
	// InitModel prepares the named model, or the configured one when empty
	InitModel(ctx context.Context, modelName string) error

	// Chat generates the next assistant message for a conversation
	Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)
}

// GenerationOptions are the sampling controls shared by every provider.
type GenerationOptions struct {
	MaxTokens   int
	Temperature float64
	BaseURL     string // overrides the provider endpoint
}

// NewLLMService builds the provider selected in cfg.
func NewLLMService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (LLMService, error) {
	opts := GenerationOptions{
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}

	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		return NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, opts, logger), nil
	case config.ProviderOpenAI:
		return NewOpenAIService(cfg.OpenAIAPIKey, cfg.ModelName, opts, logger), nil
	case config.ProviderGemini:
		return NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.ModelName, opts, logger)
	case config.ProviderMock:
		return NewMockLLMAPI(), nil
	}
	return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
}

// splitChatMessages extracts and combines all system messages into a single system prompt
// and returns the remaining non-system messages
func splitChatMessages(messages []chat.ChatMessage) (string, []chat.ChatMessage) {
	var systemParts []string
	var nonSystemMessages []chat.ChatMessage

	for _, msg := range messages {
		if msg.Role == chat.ChatRoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			nonSystemMessages = append(nonSystemMessages, msg)
		}
	}

	systemPrompt := strings.Join(systemParts, "\n\n")
	return systemPrompt, nonSystemMessages
}
