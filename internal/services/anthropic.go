package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jwebster45206/solo-dm/pkg/chat"
)

const (
	DefaultAnthropicTemperature = 0.7
	DefaultAnthropicMaxTokens   = 2048
)

// AnthropicService implements LLMService for Anthropic Claude
type AnthropicService struct {
	client      anthropic.Client
	modelName   string
	maxTokens   int64
	temperature float64
	logger      *slog.Logger
}

var _ LLMService = (*AnthropicService)(nil)

func NewAnthropicService(apiKey string, modelName string, opts GenerationOptions, logger *slog.Logger) *AnthropicService {
	reqOpts := []aoption.RequestOption{aoption.WithAPIKey(strings.TrimSpace(apiKey))}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, aoption.WithBaseURL(opts.BaseURL))
	}

	svc := &AnthropicService{
		client:      anthropic.NewClient(reqOpts...),
		modelName:   modelName,
		maxTokens:   DefaultAnthropicMaxTokens,
		temperature: DefaultAnthropicTemperature,
		logger:      logger,
	}
	if opts.MaxTokens > 0 {
		svc.maxTokens = int64(opts.MaxTokens)
	}
	if opts.Temperature > 0 {
		svc.temperature = opts.Temperature
	}
	return svc
}

func (a *AnthropicService) InitModel(ctx context.Context, modelName string) error {
	if modelName != "" {
		a.modelName = modelName
	}
	return nil
}

// buildParams converts a conversation into a Messages API request.
func (a *AnthropicService) buildParams(messages []chat.ChatMessage) anthropic.MessageNewParams {
	systemPrompt, conversation := splitChatMessages(messages)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.modelName),
		MaxTokens:   a.maxTokens,
		Temperature: anthropic.Float(a.temperature),
		Messages:    make([]anthropic.MessageParam, 0, len(conversation)),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	for _, msg := range conversation {
		block := anthropic.NewTextBlock(msg.Content)
		if msg.Role == chat.ChatRoleAgent {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}
	return params
}

// Chat generates a chat response using Anthropic Claude
func (a *AnthropicService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	params := a.buildParams(messages)
	if len(params.Messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	// Extract text content from the response
	var responseText strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			responseText.WriteString(block.Text)
		}
	}

	a.logger.Debug("Anthropic response received",
		"model", a.modelName,
		"input_tokens", msg.Usage.InputTokens,
		"output_tokens", msg.Usage.OutputTokens)

	if responseText.Len() == 0 {
		return nil, fmt.Errorf("no text content found in response")
	}
	return &chat.ChatResponse{Message: responseText.String()}, nil
}
