package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/solo-dm/internal/config"
	"github.com/jwebster45206/solo-dm/pkg/actor"
	"github.com/jwebster45206/solo-dm/pkg/dice"
	"github.com/jwebster45206/solo-dm/pkg/state"
)

// With no manager, any panel refresh that reached for the session lock
// would panic; resizing must render from the cached snapshot alone.
func TestResizeRendersFromSnapshot(t *testing.T) {
	c := actor.NewCharacter("Motu")
	c.HitPoints, c.MaxHitPoints = 20, 24
	sess := state.NewGameSession("session_x", c, time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC))
	sess.CurrentLocation = "Docks"

	m := NewConsoleUI(context.Background(), &config.Config{DefaultDC: 15}, nil,
		dice.NewSeededRoller(1), "", slog.New(slog.DiscardHandler))
	m.showSessionModal = false
	m.snapshot = sess

	model, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	ui, ok := model.(ConsoleUI)
	require.True(t, ok)

	meta := ui.metaViewport.View()
	assert.Contains(t, meta, "Motu")
	assert.Contains(t, meta, "HP: 20/24")
	assert.Contains(t, meta, "Docks")
	assert.Same(t, sess.Character, ui.character())
}

func TestNewConsoleUI_CharacterName(t *testing.T) {
	m := NewConsoleUI(context.Background(), &config.Config{}, nil,
		dice.NewSeededRoller(1), "Vex", slog.New(slog.DiscardHandler))
	assert.Equal(t, "Vex", m.characterName)
	assert.Nil(t, m.character())
}
