package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jwebster45206/solo-dm/internal/config"
	"github.com/jwebster45206/solo-dm/internal/services"
	"github.com/jwebster45206/solo-dm/pkg/chat"
	"github.com/jwebster45206/solo-dm/pkg/dmcontext"
	"github.com/jwebster45206/solo-dm/pkg/prompts"
)

func newTestGateway(llm services.LLMService, cfg *config.Config) *Gateway {
	if cfg == nil {
		cfg = &config.Config{ResponseTimeout: time.Second, HistoryExchanges: 3, MaxContextSize: 100000}
	}
	return New(llm, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRespond_Success(t *testing.T) {
	llm := services.NewMockLLMAPI()
	llm.SetChatResponse("  DM: The door creaks open.  ")
	g := newTestGateway(llm, nil)

	var history []chat.ChatMessage
	for i := 0; i < 10; i++ {
		history = append(history, chat.Exchange("act", "reply")...)
	}
	p := &dmcontext.Payload{ScenarioType: dmcontext.ScenarioCombat}

	resp := g.Respond(context.Background(), p, "I kick the door", history)
	if resp.Fallback || resp.Err != nil {
		t.Fatalf("unexpected fallback: %+v", resp)
	}
	if resp.Text != "The door creaks open." {
		t.Errorf("Text = %q", resp.Text)
	}

	_, calls := llm.GetCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 chat call, got %d", len(calls))
	}
	msgs := calls[0].Messages
	// system + 3 exchanges + user + post prompt
	if len(msgs) != 9 {
		t.Errorf("sent %d messages, want 9", len(msgs))
	}
	if !strings.Contains(msgs[0].Content, "COMBAT FOCUS") {
		t.Error("expected combat system prompt")
	}
	if !strings.HasSuffix(msgs[len(msgs)-2].Content, "I kick the door") {
		t.Error("expected player action in the user turn")
	}
}

func TestRespond_ContextBudget(t *testing.T) {
	llm := services.NewMockLLMAPI()
	g := newTestGateway(llm, &config.Config{HistoryExchanges: 10, MaxContextSize: 20})

	history := []chat.ChatMessage{
		{Role: chat.ChatRoleUser, Content: strings.Repeat("a", 30)},
		{Role: chat.ChatRoleAgent, Content: strings.Repeat("b", 30)},
		{Role: chat.ChatRoleUser, Content: "short"},
		{Role: chat.ChatRoleAgent, Content: "reply"},
	}
	g.Respond(context.Background(), nil, "look", history)

	_, calls := llm.GetCalls()
	if got := len(calls[0].Messages); got != 5 {
		t.Errorf("sent %d messages, want 5", got)
	}
}

func TestRespond_Fallback(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *services.MockLLMAPI)
	}{
		{"provider error", func(m *services.MockLLMAPI) { m.SetChatError(errors.New("503 overloaded")) }},
		{"empty reply", func(m *services.MockLLMAPI) { m.SetChatResponse("   ") }},
		{"label only", func(m *services.MockLLMAPI) { m.SetChatResponse("DM:") }},
		{"out of character", func(m *services.MockLLMAPI) { m.SetChatResponse("As an AI, I can't narrate that.") }},
		{"nil reply", func(m *services.MockLLMAPI) {
			m.ChatFunc = func(ctx context.Context, _ []chat.ChatMessage) (*chat.ChatResponse, error) { return nil, nil }
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := services.NewMockLLMAPI()
			tt.setup(llm)
			resp := newTestGateway(llm, nil).Respond(context.Background(), nil, "Open the Chest.", nil)

			if !resp.Fallback || resp.Err == nil {
				t.Fatalf("expected fallback, got %+v", resp)
			}
			if resp.Text != "As you attempt to open the chest, something unexpected happens..." {
				t.Errorf("Text = %q", resp.Text)
			}
		})
	}
}

func TestRespond_Timeout(t *testing.T) {
	llm := services.NewMockLLMAPI()
	llm.ChatFunc = func(ctx context.Context, _ []chat.ChatMessage) (*chat.ChatResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	g := newTestGateway(llm, &config.Config{ResponseTimeout: 20 * time.Millisecond, HistoryExchanges: 3})

	resp := g.Respond(context.Background(), nil, "wait", nil)
	if !resp.Fallback || !errors.Is(resp.Err, context.DeadlineExceeded) {
		t.Errorf("expected deadline fallback, got %+v", resp)
	}
}

func TestOpening(t *testing.T) {
	llm := services.NewMockLLMAPI()
	llm.SetChatResponse("Mist clings to the harbor.")
	resp := newTestGateway(llm, nil).Opening(context.Background(), &dmcontext.Payload{})
	if resp.Text != "Mist clings to the harbor." {
		t.Errorf("Text = %q", resp.Text)
	}
	_, calls := llm.GetCalls()
	last := calls[0].Messages[len(calls[0].Messages)-2]
	if !strings.HasSuffix(last.Content, prompts.OpeningAction) {
		t.Error("expected opening action in the user turn")
	}

	llm.SetChatError(errors.New("down"))
	resp = newTestGateway(llm, nil).Opening(context.Background(), nil)
	if !resp.Fallback || resp.Text != OpeningFallback {
		t.Errorf("expected opening fallback, got %+v", resp)
	}
}

func TestRespond_NoModel(t *testing.T) {
	resp := newTestGateway(nil, nil).Respond(context.Background(), nil, "look", nil)
	if !resp.Fallback {
		t.Error("expected fallback without a model")
	}
}

func TestActionFallback(t *testing.T) {
	tests := map[string]string{
		"Search the Room":    "As you attempt to search the room, something unexpected happens...",
		"  climb the wall! ": "As you attempt to climb the wall, something unexpected happens...",
		"":                   "Something unexpected happens...",
	}
	for in, want := range tests {
		if got := ActionFallback(in); got != want {
			t.Errorf("ActionFallback(%q) = %q, want %q", in, got, want)
		}
	}
}
