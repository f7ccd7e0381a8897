package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	ooption "github.com/openai/openai-go/option"

	"github.com/jwebster45206/solo-dm/pkg/chat"
)

// OpenAIService implements LLMService using the Chat Completions API
type OpenAIService struct {
	client      openai.Client
	modelName   string
	maxTokens   int64
	temperature float64
	logger      *slog.Logger
}

var _ LLMService = (*OpenAIService)(nil)

func NewOpenAIService(apiKey string, modelName string, opts GenerationOptions, logger *slog.Logger) *OpenAIService {
	reqOpts := []ooption.RequestOption{ooption.WithAPIKey(strings.TrimSpace(apiKey))}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, ooption.WithBaseURL(opts.BaseURL))
	}
	return &OpenAIService{
		client:      openai.NewClient(reqOpts...),
		modelName:   modelName,
		maxTokens:   int64(opts.MaxTokens),
		temperature: opts.Temperature,
		logger:      logger,
	}
}

// InitModel is a no-op beyond recording an override; OpenAI models need no warmup.
func (o *OpenAIService) InitModel(ctx context.Context, modelName string) error {
	if modelName != "" {
		o.modelName = modelName
	}
	return nil
}

func (o *OpenAIService) buildParams(messages []chat.ChatMessage) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.modelName),
		Messages:    make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
		Temperature: openai.Float(o.temperature),
	}
	if o.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(o.maxTokens)
	}

	for _, msg := range messages {
		switch msg.Role {
		case chat.ChatRoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case chat.ChatRoleAgent:
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}
	return params
}

// Chat generates a chat response using OpenAI
func (o *OpenAIService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	resp, err := o.client.Chat.Completions.New(ctx, o.buildParams(messages))
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from API")
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("model refused to respond: %s", choice.Message.Refusal)
	}
	if choice.Message.Content == "" {
		return nil, fmt.Errorf("no text content found in response")
	}

	o.logger.Debug("OpenAI response received",
		"model", o.modelName,
		"finish_reason", choice.FinishReason,
		"total_tokens", resp.Usage.TotalTokens)

	return &chat.ChatResponse{Message: choice.Message.Content}, nil
}
