package prompts

import (
	"strings"
	"testing"

	"github.com/jwebster45206/solo-dm/pkg/chat"
	"github.com/jwebster45206/solo-dm/pkg/dmcontext"
)

func history(n int) []chat.ChatMessage {
	var h []chat.ChatMessage
	for i := 0; i < n; i++ {
		h = append(h, chat.Exchange("action", "reply")...)
	}
	return h
}

func TestNew(t *testing.T) {
	builder := New()
	if builder == nil {
		t.Fatal("Expected builder to be created, got nil")
	}
	if builder.historyLimit != DefaultHistoryLimit {
		t.Errorf("Expected default history limit of %d, got %d", DefaultHistoryLimit, builder.historyLimit)
	}
	if builder.messages == nil {
		t.Error("Expected messages slice to be initialized")
	}
}

func TestBuilder_FluentInterface(t *testing.T) {
	p := &dmcontext.Payload{ScenarioType: dmcontext.ScenarioCombat}
	h := history(2)

	builder := New().
		WithPayload(p).
		WithHistory(h).
		WithPlayerInput("I attack").
		WithHistoryLimit(10).
		WithMaxChars(500)

	if builder.payload != p {
		t.Error("WithPayload did not set payload")
	}
	if len(builder.history) != 4 {
		t.Error("WithHistory did not set history")
	}
	if builder.playerInput != "I attack" {
		t.Error("WithPlayerInput did not set input")
	}
	if builder.historyLimit != 10 {
		t.Error("WithHistoryLimit did not set limit")
	}
	if builder.maxChars != 500 {
		t.Error("WithMaxChars did not set cap")
	}
}

func TestBuilder_Build_RequiresInput(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Error("Expected error when player input is missing")
	}
}

func TestBuilder_Build_MessageOrder(t *testing.T) {
	p := &dmcontext.Payload{ScenarioType: dmcontext.ScenarioSocial}

	messages, err := BuildMessages(p, history(2), "I talk to Aria", 20, 0)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// system, 4 history, user, post prompt
	if len(messages) != 7 {
		t.Fatalf("Expected 7 messages, got %d", len(messages))
	}
	if messages[0].Role != chat.ChatRoleSystem {
		t.Errorf("First message role = %s, want system", messages[0].Role)
	}
	if !strings.Contains(messages[0].Content, "SOCIAL FOCUS") {
		t.Error("Expected social system prompt")
	}
	user := messages[5]
	if user.Role != chat.ChatRoleUser || !strings.HasSuffix(user.Content, "I talk to Aria") {
		t.Errorf("Unexpected user message: %+v", user)
	}
	if messages[6].Content != UserPostPrompt {
		t.Error("Expected post prompt last")
	}
}

func TestBuilder_Build_NilPayload(t *testing.T) {
	messages, err := New().WithPlayerInput("look around").Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if messages[0].Content != BaseSystemPrompt {
		t.Error("Expected base system prompt without payload")
	}
	if messages[1].Content != "## Player Action\nlook around" {
		t.Errorf("Unexpected user content %q", messages[1].Content)
	}
}

func TestWindowHistory(t *testing.T) {
	tests := []struct {
		name     string
		history  []chat.ChatMessage
		limit    int
		maxChars int
		wantLen  int
	}{
		{"empty", nil, 6, 0, 0},
		{"under limit", history(2), 6, 0, 4},
		{"limit keeps last three exchanges", history(10), 6, 0, 6},
		{"odd limit drops leading reply", history(3), 3, 0, 2},
		{"zero limit", history(3), 0, 0, 0},
		{"char cap", history(10), 20, 33, 6}, // each exchange is 11 chars
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WindowHistory(tt.history, tt.limit, tt.maxChars)
			if len(got) != tt.wantLen {
				t.Fatalf("WindowHistory() len = %d, want %d", len(got), tt.wantLen)
			}
			if len(got) > 0 && got[0].Role != chat.ChatRoleUser {
				t.Errorf("Window starts with %s, want user", got[0].Role)
			}
		})
	}
}

func TestWindowHistory_SkipsSystemMessages(t *testing.T) {
	h := []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: "old prompt"},
		{Role: chat.ChatRoleUser, Content: "a"},
		{Role: chat.ChatRoleAgent, Content: "b"},
	}
	got := WindowHistory(h, 10, 0)
	if len(got) != 2 {
		t.Fatalf("WindowHistory() len = %d, want 2", len(got))
	}
}
