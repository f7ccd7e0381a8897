package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/solo-dm/pkg/chat"
)

// MockLLMAPI is a mock implementation of LLMService for testing and offline play
type MockLLMAPI struct {
	InitModelFunc func(ctx context.Context, modelName string) error
	ChatFunc      func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)

	// Track calls for testing
	InitModelCalls []string
	ChatCalls      []ChatCall

	mu sync.Mutex // protects all fields above
}

type ChatCall struct {
	Messages []chat.ChatMessage
}

var _ LLMService = (*MockLLMAPI)(nil)

// NewMockLLMAPI creates a new mock LLM service
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{
		InitModelCalls: make([]string, 0),
		ChatCalls:      make([]ChatCall, 0),
	}
}

// InitModel mocks model initialization
func (m *MockLLMAPI) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	m.InitModelCalls = append(m.InitModelCalls, modelName)
	fn := m.InitModelFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, modelName)
	}

	// Default behavior - success
	return nil
}

// Chat mocks response generation
func (m *MockLLMAPI) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	m.mu.Lock()
	m.ChatCalls = append(m.ChatCalls, ChatCall{
		Messages: append([]chat.ChatMessage(nil), messages...),
	})
	fn := m.ChatFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages)
	}

	return &chat.ChatResponse{
		Message: "Mock response",
	}, nil
}

// Reset clears all call tracking
func (m *MockLLMAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelCalls = make([]string, 0)
	m.ChatCalls = make([]ChatCall, 0)
}

// SetInitModelError sets up the mock to return an error on InitModel
func (m *MockLLMAPI) SetInitModelError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelFunc = func(ctx context.Context, modelName string) error {
		return err
	}
}

// SetChatError sets up the mock to return an error on Chat
func (m *MockLLMAPI) SetChatError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		return nil, err
	}
}

// SetChatResponse sets up the mock to return a fixed message
func (m *MockLLMAPI) SetChatResponse(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		return &chat.ChatResponse{Message: message}, nil
	}
}

// GetCalls returns a copy of the call tracking data in a thread-safe way
func (m *MockLLMAPI) GetCalls() ([]string, []ChatCall) {
	m.mu.Lock()
	defer m.mu.Unlock()

	initCalls := make([]string, len(m.InitModelCalls))
	copy(initCalls, m.InitModelCalls)

	chatCalls := make([]ChatCall, len(m.ChatCalls))
	copy(chatCalls, m.ChatCalls)

	return initCalls, chatCalls
}
