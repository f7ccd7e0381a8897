// Package gateway sends a turn to the language model and turns any failure
// into in-character narration.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jwebster45206/solo-dm/internal/config"
	"github.com/jwebster45206/solo-dm/internal/logger"
	"github.com/jwebster45206/solo-dm/internal/services"
	"github.com/jwebster45206/solo-dm/pkg/chat"
	"github.com/jwebster45206/solo-dm/pkg/dmcontext"
	"github.com/jwebster45206/solo-dm/pkg/prompts"
	"github.com/jwebster45206/solo-dm/pkg/textfilter"
)

// OpeningFallback is narrated when the opening scene cannot be generated.
const OpeningFallback = "You find yourself ready to begin a new adventure..."

var (
	errEmptyReply     = errors.New("model returned an empty reply")
	errOutOfCharacter = errors.New("model replied out of character")
)

// Response is the narrative for one turn.
type Response struct {
	Text     string
	Fallback bool  // Text is a placeholder because the model call failed
	Err      error // the model failure, when Fallback is set
}

// Gateway wraps an LLMService with history windowing and a timeout.
type Gateway struct {
	llm          services.LLMService
	logger       *slog.Logger
	timeout      time.Duration
	historyLimit int // messages
	maxChars     int
}

// New creates a Gateway using cfg's timeout and history budget.
func New(llm services.LLMService, cfg *config.Config, logger *slog.Logger) *Gateway {
	return &Gateway{
		llm:          llm,
		logger:       logger,
		timeout:      cfg.ResponseTimeout,
		historyLimit: cfg.HistoryExchanges * 2,
		maxChars:     cfg.MaxContextSize,
	}
}

// Respond asks the model for the next scene after playerInput. It never
// fails: errors produce a fallback narrative.
func (g *Gateway) Respond(ctx context.Context, p *dmcontext.Payload, playerInput string, history []chat.ChatMessage) Response {
	text, err := g.call(ctx, p, playerInput, history)
	if err != nil {
		logger.WithError(g.logger, err).Warn("Model call failed; using fallback narrative")
		return Response{Text: ActionFallback(playerInput), Fallback: true, Err: err}
	}
	return Response{Text: text}
}

// Opening generates the first scene of a session.
func (g *Gateway) Opening(ctx context.Context, p *dmcontext.Payload) Response {
	text, err := g.call(ctx, p, prompts.OpeningAction, nil)
	if err != nil {
		logger.WithError(g.logger, err).Warn("Opening scene generation failed; using fallback narrative")
		return Response{Text: OpeningFallback, Fallback: true, Err: err}
	}
	return Response{Text: text}
}

// ActionFallback is the placeholder narration for a failed action.
func ActionFallback(action string) string {
	action = strings.TrimRight(strings.TrimSpace(action), ".!?")
	if action == "" {
		return "Something unexpected happens..."
	}
	return fmt.Sprintf("As you attempt to %s, something unexpected happens...", strings.ToLower(action))
}

func (g *Gateway) call(ctx context.Context, p *dmcontext.Payload, input string, history []chat.ChatMessage) (string, error) {
	if g.llm == nil {
		return "", errors.New("no language model configured")
	}

	messages, err := prompts.BuildMessages(p, history, input, g.historyLimit, g.maxChars)
	if err != nil {
		return "", fmt.Errorf("failed to build messages: %w", err)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.llm.Chat(ctx, messages)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errEmptyReply
	}
	text := textfilter.CleanNarration(resp.Message)
	if text == "" {
		return "", errEmptyReply
	}
	if textfilter.IsRefusal(text) {
		return "", errOutOfCharacter
	}

	g.logger.Debug("Model reply received", "chars", len(text), "messages", len(messages), "elapsed", time.Since(start))
	return text, nil
}
