package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jwebster45206/solo-dm/pkg/chat"
)

// GeminiService implements LLMService for Google Gemini
type GeminiService struct {
	client    *genai.Client
	modelName string
	opts      GenerationOptions
	logger    *slog.Logger
}

var _ LLMService = (*GeminiService)(nil)

func NewGeminiService(ctx context.Context, apiKey string, modelName string, opts GenerationOptions, logger *slog.Logger) (*GeminiService, error) {
	clientOpts := []option.ClientOption{option.WithAPIKey(strings.TrimSpace(apiKey))}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.BaseURL))
	}
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiService{
		client:    client,
		modelName: modelName,
		opts:      opts,
		logger:    logger,
	}, nil
}

func (g *GeminiService) InitModel(ctx context.Context, modelName string) error {
	if modelName != "" {
		g.modelName = modelName
	}
	return nil
}

// toGeminiHistory splits a conversation into prior turns and the message to send.
func toGeminiHistory(conversation []chat.ChatMessage) ([]*genai.Content, string) {
	if len(conversation) == 0 {
		return nil, ""
	}
	last := conversation[len(conversation)-1]
	history := make([]*genai.Content, 0, len(conversation)-1)
	for _, msg := range conversation[:len(conversation)-1] {
		role := "user"
		if msg.Role == chat.ChatRoleAgent {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return history, last.Content
}

func responseText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				text.WriteString(string(txt))
			}
		}
	}
	return text.String()
}

// Chat generates a chat response using Gemini
func (g *GeminiService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	systemPrompt, conversation := splitChatMessages(messages)
	history, message := toGeminiHistory(conversation)
	if message == "" {
		return nil, fmt.Errorf("no messages provided")
	}

	model := g.client.GenerativeModel(g.modelName)
	if g.opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(g.opts.MaxTokens))
	}
	if g.opts.Temperature > 0 {
		model.SetTemperature(float32(g.opts.Temperature))
	}
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	}

	cs := model.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("no text content found in response")
	}
	return &chat.ChatResponse{Message: text}, nil
}

// Close releases the underlying client.
func (g *GeminiService) Close() error {
	return g.client.Close()
}
