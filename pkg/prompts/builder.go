package prompts

import (
	"fmt"

	"github.com/jwebster45206/solo-dm/pkg/chat"
	"github.com/jwebster45206/solo-dm/pkg/dmcontext"
)

// DefaultHistoryLimit is the number of past messages sent with each turn.
const DefaultHistoryLimit = 6

// Builder constructs chat messages for LLM interaction using a fluent interface.
type Builder struct {
	payload      *dmcontext.Payload
	history      []chat.ChatMessage
	playerInput  string
	historyLimit int
	maxChars     int
	messages     []chat.ChatMessage
}

// New creates a new prompt builder with default settings.
func New() *Builder {
	return &Builder{
		historyLimit: DefaultHistoryLimit,
		messages:     make([]chat.ChatMessage, 0),
	}
}

// WithPayload sets the context payload for this turn.
func (b *Builder) WithPayload(p *dmcontext.Payload) *Builder {
	b.payload = p
	return b
}

// WithHistory sets the session's conversation history.
func (b *Builder) WithHistory(history []chat.ChatMessage) *Builder {
	b.history = history
	return b
}

// WithPlayerInput sets the player's action text.
func (b *Builder) WithPlayerInput(input string) *Builder {
	b.playerInput = input
	return b
}

// WithHistoryLimit sets the chat history window size, in messages.
func (b *Builder) WithHistoryLimit(limit int) *Builder {
	b.historyLimit = limit
	return b
}

// WithMaxChars caps the combined length of the windowed history.
// Zero means no cap.
func (b *Builder) WithMaxChars(n int) *Builder {
	b.maxChars = n
	return b
}

// Build constructs and returns the final message array for LLM consumption.
// The first message is always the system prompt.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if b.playerInput == "" {
		return nil, fmt.Errorf("player input is required")
	}

	scenario := dmcontext.ScenarioGeneral
	if b.payload != nil {
		scenario = b.payload.ScenarioType
	}

	b.messages = make([]chat.ChatMessage, 0, len(b.history)+3)

	// 1. System prompt
	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleSystem,
		Content: SystemPrompt(scenario),
	})

	// 2. Windowed chat history
	b.messages = append(b.messages, WindowHistory(b.history, b.historyLimit, b.maxChars)...)

	// 3. Context and player action
	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleUser,
		Content: RenderUserMessage(b.payload, b.playerInput),
	})

	// 4. Final reminder
	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleSystem,
		Content: UserPostPrompt,
	})

	return b.messages, nil
}

// WindowHistory returns the most recent limit messages, then drops the
// oldest until the total content length fits within maxChars. System
// messages are skipped. The window never starts on an assistant reply.
func WindowHistory(history []chat.ChatMessage, limit, maxChars int) []chat.ChatMessage {
	var msgs []chat.ChatMessage
	for _, m := range history {
		if m.Role != chat.ChatRoleSystem {
			msgs = append(msgs, m)
		}
	}
	if limit <= 0 {
		return nil
	}
	msgs = chat.TrimHistory(msgs, limit)

	if maxChars > 0 {
		total := 0
		for _, m := range msgs {
			total += len(m.Content)
		}
		for len(msgs) > 0 && total > maxChars {
			total -= len(msgs[0].Content)
			msgs = msgs[1:]
		}
		if len(msgs) > 0 && msgs[0].Role == chat.ChatRoleAgent {
			msgs = msgs[1:]
		}
	}
	return msgs
}

// BuildMessages is a convenience function for the common case.
func BuildMessages(p *dmcontext.Payload, history []chat.ChatMessage, input string, historyLimit, maxChars int) ([]chat.ChatMessage, error) {
	return New().
		WithPayload(p).
		WithHistory(history).
		WithPlayerInput(input).
		WithHistoryLimit(historyLimit).
		WithMaxChars(maxChars).
		Build()
}
