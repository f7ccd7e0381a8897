// Package session owns the active GameSession: its lifecycle, the player
// action loop, and persistence through the session store.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jwebster45206/solo-dm/internal/config"
	"github.com/jwebster45206/solo-dm/internal/gateway"
	"github.com/jwebster45206/solo-dm/internal/logger"
	"github.com/jwebster45206/solo-dm/pkg/actor"
	"github.com/jwebster45206/solo-dm/pkg/campaign"
	"github.com/jwebster45206/solo-dm/pkg/chat"
	"github.com/jwebster45206/solo-dm/pkg/dmcontext"
	"github.com/jwebster45206/solo-dm/pkg/state"
	"github.com/jwebster45206/solo-dm/pkg/storage"
)

var (
	ErrNoActiveSession  = errors.New("no active session")
	ErrNoCampaignData   = errors.New("no campaign data loaded")
	ErrSessionNotActive = errors.New("session is not active")

	ErrSessionNotFound   = storage.ErrSessionNotFound
	ErrNoSessionsFound   = storage.ErrNoSessionsFound
	ErrSessionReadOnly   = state.ErrSessionReadOnly
	ErrInvalidTransition = state.ErrInvalidTransition
)

// Campaign is the loader as seen by the session manager.
type Campaign interface {
	dmcontext.Source
	LoadAll(ctx context.Context) (map[string]*campaign.File, error)
	Get(key string) *campaign.File
	Dir() string
}

// Narrator produces scene text for the session.
type Narrator interface {
	Opening(ctx context.Context, p *dmcontext.Payload) gateway.Response
	Respond(ctx context.Context, p *dmcontext.Payload, playerInput string, history []chat.ChatMessage) gateway.Response
}

// Manager serializes every session mutation and save behind one mutex.
type Manager struct {
	cfg      *config.Config
	campaign Campaign
	store    storage.Storage
	narrator Narrator
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	current  *state.GameSession
	lastSave time.Time
}

// NewManager wires a Manager. cfg supplies the autosave interval, history
// cap, and backup setting.
func NewManager(cfg *config.Config, c Campaign, store storage.Storage, narrator Narrator, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		campaign: c,
		store:    store,
		narrator: narrator,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Current returns a copy of the active session, or nil.
func (m *Manager) Current() *state.GameSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Clone()
}

// StartNewSession loads the campaign, builds the character, generates the
// opening scene, saves, and backs up the campaign files.
func (m *Manager) StartNewSession(ctx context.Context, characterName string) (*state.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	files, err := m.campaign.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoCampaignData, err)
	}
	if len(files) == 0 {
		return nil, ErrNoCampaignData
	}

	character := m.campaign.CharacterStats().Clone()
	if character == nil {
		character = actor.NewCharacter("")
	}
	if name := strings.TrimSpace(characterName); name != "" {
		character.Name = name
	}

	now := m.now()
	sess := state.NewGameSession(state.NewSessionID(now), character, now)
	if loc := m.campaign.QuickReference().Get("current_location"); loc != "" {
		sess.CurrentLocation = loc
	}
	sess.ContextSummary = fmt.Sprintf("%d campaign files | %s %s", len(files), character.Name, character.Summary())

	payload := dmcontext.New(m.source(sess)).
		Build(dmcontext.ScenarioGeneral, nil).
		WithScene("", sess.CurrentLocation)
	opening := m.narrator.Opening(ctx, payload)
	sess.CurrentScene = opening.Text
	sess.AppendHistory(m.maxHistory(), chat.ChatMessage{Role: chat.ChatRoleAgent, Content: opening.Text})

	if err := m.saveLocked(ctx, sess, false); err != nil {
		return nil, err
	}
	m.current = sess

	if m.cfg.BackupEnabled {
		if _, err := m.store.BackupCampaign(ctx, sess.SessionID, m.campaign.Dir()); err != nil {
			m.sessionLog(sess).Warn("Failed to back up campaign files", "error", err)
		}
	}
	m.updateLedger(ctx, func(st *campaign.State) {
		st.Visit(sess.CurrentLocation)
	})

	m.sessionLog(sess).Info("Session started", "character", character.Name, "files", len(files))
	return sess.Clone(), nil
}

// SaveSession writes the active session. The last-save time is updated for
// manual and automatic saves alike.
func (m *Manager) SaveSession(ctx context.Context, auto bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ErrNoActiveSession
	}
	return m.saveLocked(ctx, m.current, auto)
}

func (m *Manager) saveLocked(ctx context.Context, sess *state.GameSession, auto bool) error {
	if err := m.store.SaveSession(ctx, sess); err != nil {
		return fmt.Errorf("failed to save session %s: %w", sess.SessionID, err)
	}
	m.lastSave = m.now()
	if auto {
		m.sessionLog(sess).Info("Session autosaved")
	} else {
		m.sessionLog(sess).Debug("Session saved")
	}
	return nil
}

// LoadSession makes a saved session active. An empty id loads the most
// recently modified session.
func (m *Manager) LoadSession(ctx context.Context, id string) (*state.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		latest, err := m.store.LatestSessionID(ctx)
		if err != nil {
			return nil, err
		}
		id = latest
	}

	sess, err := m.store.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := m.campaign.LoadAll(ctx); err != nil {
		m.logger.Warn("Campaign files unavailable; continuing without context", "error", err)
	}

	m.current = sess
	m.lastSave = m.now()
	m.sessionLog(sess).Info("Session loaded", "actions", len(sess.ActionsTaken))
	return sess.Clone(), nil
}

// ProcessPlayerAction logs the action, asks the narrator for the next
// scene, records the result, and autosaves when due. It returns the scene.
func (m *Manager) ProcessPlayerAction(ctx context.Context, text string) (string, error) {
	action := chat.PlayerAction{Message: strings.TrimSpace(text)}
	if err := action.Validate(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.current
	if sess == nil {
		return "", ErrNoActiveSession
	}
	if err := sess.CheckWritable(); err != nil {
		return "", err
	}
	if sess.Status != state.StatusActive {
		return "", fmt.Errorf("%w: status is %s", ErrSessionNotActive, sess.Status)
	}

	idx := sess.LogAction(action.Message, m.now())

	scenario := dmcontext.DetectScenario(action.Message)
	src := m.source(sess)
	payload := dmcontext.New(src).
		Build(scenario, mentionedNPCs(src, action.Message)).
		WithScene(sess.CurrentScene, sess.CurrentLocation)

	resp := m.narrator.Respond(ctx, payload, action.Message, sess.ConversationHistory)

	sess.SetResult(idx, resp.Text)
	sess.CurrentScene = resp.Text
	sess.AppendHistory(m.maxHistory(), chat.Exchange(action.Message, resp.Text)...)

	m.sessionLog(sess).Debug("Player action processed", "scenario", scenario, "fallback", resp.Fallback)

	if _, err := m.autoSaveLocked(ctx); err != nil {
		m.sessionLog(sess).Error("Autosave failed", "error", err)
	}
	return resp.Text, nil
}

// CheckAutoSave saves the active session when the autosave interval has
// elapsed since the last save. It reports whether a save happened.
func (m *Manager) CheckAutoSave(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autoSaveLocked(ctx)
}

func (m *Manager) autoSaveLocked(ctx context.Context) (bool, error) {
	if m.current == nil || m.current.Status.ReadOnly() {
		return false, nil
	}
	if m.now().Sub(m.lastSave) < m.autoSaveInterval() {
		return false, nil
	}
	if err := m.saveLocked(ctx, m.current, true); err != nil {
		return false, err
	}
	return true, nil
}

// RunAutoSave checks for a due autosave on a ticker until ctx is done.
func (m *Manager) RunAutoSave(ctx context.Context) {
	every := min(m.autoSaveInterval(), 30*time.Second)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.CheckAutoSave(ctx); err != nil {
				m.logger.Error("Autosave failed", "error", err)
			}
		}
	}
}

// ListSessions returns saved session summaries, newest first.
func (m *Manager) ListSessions(ctx context.Context) ([]state.SessionSummary, error) {
	return m.store.ListSessions(ctx)
}

// DeleteSession removes a saved session and reports whether it existed.
// Deleting the active session also deactivates it.
func (m *Manager) DeleteSession(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existed, err := m.store.DeleteSession(ctx, id)
	if err != nil {
		return false, err
	}
	if m.current != nil && m.current.SessionID == id {
		m.current = nil
	}
	return existed, nil
}

func (m *Manager) sessionLog(sess *state.GameSession) *slog.Logger {
	return logger.WithSession(m.logger, sess.SessionID)
}

func (m *Manager) autoSaveInterval() time.Duration {
	if m.cfg.AutoSaveInterval > 0 {
		return m.cfg.AutoSaveInterval
	}
	return 5 * time.Minute
}

func (m *Manager) maxHistory() int {
	if m.cfg.MaxHistory > 0 {
		return m.cfg.MaxHistory
	}
	return state.DefaultMaxHistory
}

// campaignName identifies the campaign in the ledger.
func (m *Manager) campaignName() string {
	if name := m.campaign.QuickReference().Get("campaign"); name != "" {
		return name
	}
	return filepath.Base(filepath.Clean(m.campaign.Dir()))
}

// updateLedger applies fn to the stored campaign state. Ledger failures are
// logged and never fail the session operation.
func (m *Manager) updateLedger(ctx context.Context, fn func(st *campaign.State)) {
	if err := m.editLedger(ctx, func(st *campaign.State) error {
		fn(st)
		return nil
	}); err != nil {
		logger.WithError(m.logger, err).Warn("Failed to update campaign state", "campaign", m.campaignName())
	}
}

func (m *Manager) editLedger(ctx context.Context, fn func(st *campaign.State) error) error {
	name := m.campaignName()
	st, err := m.store.LoadCampaignState(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load campaign state: %w", err)
	}
	if err := fn(st); err != nil {
		return err
	}
	if err := m.store.SaveCampaignState(ctx, st); err != nil {
		return fmt.Errorf("failed to save campaign state: %w", err)
	}
	return nil
}
