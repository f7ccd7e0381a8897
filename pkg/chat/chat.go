package chat

import (
	"fmt"
	"strings"
)

// MaxMessageLength caps a single player action.
const MaxMessageLength = 4000

const (
	ChatRoleUser   = "user"      // Player
	ChatRoleAgent  = "assistant" // DM
	ChatRoleSystem = "system"    // Instructions and context
)

// ChatMessage represents a single message in the conversation sent to the LLM.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ChatResponse is the text returned by an LLM provider.
type ChatResponse struct {
	Message string `json:"message,omitempty"`
}

// PlayerAction is a free-text action typed by the player.
type PlayerAction struct {
	Message string `json:"message"`
}

func (pa *PlayerAction) Validate() error {
	msg := strings.TrimSpace(pa.Message)
	if msg == "" {
		return fmt.Errorf("message cannot be empty")
	}
	if len(msg) > MaxMessageLength {
		return fmt.Errorf("message exceeds maximum length of %d characters", MaxMessageLength)
	}
	return nil
}

// Exchange pairs a player message with the DM reply.
func Exchange(action, reply string) []ChatMessage {
	return []ChatMessage{
		{Role: ChatRoleUser, Content: action},
		{Role: ChatRoleAgent, Content: reply},
	}
}

// TrimHistory keeps the most recent max messages.
// A history that would start on an assistant turn is trimmed one further
// so the window always opens with the player.
func TrimHistory(history []ChatMessage, max int) []ChatMessage {
	if max <= 0 {
		return nil
	}
	if len(history) <= max {
		return history
	}
	window := history[len(history)-max:]
	if len(window) > 1 && window[0].Role == ChatRoleAgent {
		window = window[1:]
	}
	return window
}
