package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/solo-dm/internal/config"
	"github.com/jwebster45206/solo-dm/internal/gateway"
	"github.com/jwebster45206/solo-dm/internal/loader"
	"github.com/jwebster45206/solo-dm/internal/services"
	filestore "github.com/jwebster45206/solo-dm/internal/storage"
	"github.com/jwebster45206/solo-dm/pkg/state"
	"github.com/jwebster45206/solo-dm/pkg/storage"
)

const testNPCs = `# NPCs

### **Aria** ⭐⭐⭐ [ALLY]
**Role:** Spy
**Current Status:** Undercover

### **Bram** ⭐ [CONTACT]
**Role:** Dockmaster
`

const testSheet = `# Character
**Name:** Motu
**Level:** 3
**HP:** 20/24
**AC:** 13
`

const testQuickRef = `**Campaign:** The Fey Bargain
**Time:** Evening
**Location:** Docks
`

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	mgr    *Manager
	llm    *services.MockLLMAPI
	store  *storage.MockStorage
	clock  *fakeClock
	dir    string
	config *config.Config
}

func writeCampaign(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func defaultCampaign() map[string]string {
	return map[string]string{
		"npc_directory.md":   testNPCs,
		"character_sheet.md": testSheet,
		"quick_reference.md": testQuickRef,
	}
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := writeCampaign(t, files)

	cfg := config.Defaults()
	cfg.CampaignDir = dir
	cfg.HistoryExchanges = 3
	cfg.MaxHistory = 20
	cfg.AutoSaveInterval = 5 * time.Minute
	cfg.BackupEnabled = true

	llm := services.NewMockLLMAPI()
	llm.SetChatResponse("The harbor bell tolls.")
	store := storage.NewMockStorage()
	clock := &fakeClock{t: time.Date(2026, 10, 17, 20, 15, 0, 0, time.UTC)}

	mgr := NewManager(cfg, loader.New(dir, nil, logger), store, gateway.New(llm, cfg, logger), logger)
	mgr.SetClock(clock.Now)

	return &fixture{mgr: mgr, llm: llm, store: store, clock: clock, dir: dir, config: cfg}
}

func TestStartNewSession(t *testing.T) {
	f := newFixture(t, defaultCampaign())
	ctx := context.Background()

	sess, err := f.mgr.StartNewSession(ctx, "")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^session_20261017_201500_[0-9a-f]{8}$`), sess.SessionID)
	assert.Equal(t, "Motu", sess.Character.Name)
	assert.Equal(t, 20, sess.Character.HitPoints)
	assert.Equal(t, "Docks", sess.CurrentLocation)
	assert.Equal(t, "The harbor bell tolls.", sess.CurrentScene)
	assert.Equal(t, state.StatusActive, sess.Status)

	saved, err := f.store.LoadSession(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, sess.CurrentScene, saved.CurrentScene)
	assert.True(t, f.store.BackedUp(sess.SessionID))

	st, err := f.store.LoadCampaignState(ctx, "The Fey Bargain")
	require.NoError(t, err)
	assert.Equal(t, []string{"Docks"}, st.VisitedLocations)
}

func TestStartNewSession_NameOverrideAndDefaults(t *testing.T) {
	f := newFixture(t, map[string]string{"house_rules.md": "# Rules"})
	f.config.BackupEnabled = false

	sess, err := f.mgr.StartNewSession(context.Background(), "  Zed ")
	require.NoError(t, err)
	assert.Equal(t, "Zed", sess.Character.Name)
	assert.Equal(t, 1, sess.Character.Level)
	assert.Equal(t, 10, sess.Character.HitPoints)
	assert.Equal(t, 10, sess.Character.ArmorClass)
	assert.False(t, f.store.BackedUp(sess.SessionID))
}

func TestStartNewSession_NoCampaignData(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.mgr.StartNewSession(context.Background(), "")
	assert.True(t, errors.Is(err, ErrNoCampaignData), "got %v", err)
	assert.Nil(t, f.mgr.Current())
}

func TestStartNewSession_OpeningFallback(t *testing.T) {
	f := newFixture(t, defaultCampaign())
	f.llm.SetChatError(errors.New("service unavailable"))

	sess, err := f.mgr.StartNewSession(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, gateway.OpeningFallback, sess.CurrentScene)
}

func TestStartNewSession_UniqueIDs(t *testing.T) {
	f := newFixture(t, defaultCampaign())
	a, err := f.mgr.StartNewSession(context.Background(), "")
	require.NoError(t, err)
	b, err := f.mgr.StartNewSession(context.Background(), "")
	require.NoError(t, err)
	assert.NotEqual(t, a.SessionID, b.SessionID)
}

func TestProcessPlayerAction(t *testing.T) {
	f := newFixture(t, defaultCampaign())
	ctx := context.Background()

	_, err := f.mgr.ProcessPlayerAction(ctx, "look around")
	assert.True(t, errors.Is(err, ErrNoActiveSession), "got %v", err)

	_, err = f.mgr.StartNewSession(ctx, "")
	require.NoError(t, err)

	f.llm.SetChatResponse("Aria slips you a note.")
	scene, err := f.mgr.ProcessPlayerAction(ctx, "I talk to Aria")
	require.NoError(t, err)
	assert.Equal(t, "Aria slips you a note.", scene)

	cur := f.mgr.Current()
	require.Len(t, cur.ActionsTaken, 1)
	entry := cur.ActionsTaken[0]
	assert.Equal(t, "I talk to Aria", entry.Action)
	assert.Equal(t, "The harbor bell tolls.", entry.SceneBefore)
	assert.Equal(t, "Aria slips you a note.", entry.Result)
	assert.Equal(t, "Aria slips you a note.", cur.CurrentScene)

	_, calls := f.llm.GetCalls()
	last := calls[len(calls)-1].Messages
	assert.Contains(t, last[0].Content, "SOCIAL FOCUS")
	user := last[len(last)-2].Content
	assert.Contains(t, user, "- Aria ⭐⭐⭐: Spy")
	assert.NotContains(t, user, "Bram")
	assert.Contains(t, user, "## Current Scene\nThe harbor bell tolls.")
}

func TestProcessPlayerAction_Validation(t *testing.T) {
	f := newFixture(t, defaultCampaign())
	ctx := context.Background()
	_, err := f.mgr.StartNewSession(ctx, "")
	require.NoError(t, err)

	_, err = f.mgr.ProcessPlayerAction(ctx, "   ")
	assert.Error(t, err)
	_, err = f.mgr.ProcessPlayerAction(ctx, strings.Repeat("x", 5000))
	assert.Error(t, err)
	assert.Empty(t, f.mgr.Current().ActionsTaken)
}

func TestProcessPlayerAction_SceneSnapshotAndHistoryCap(t *testing.T) {
	f := newFixture(t, defaultCampaign())
	ctx := context.Background()
	_, err := f.mgr.StartNewSession(ctx, "")
	require.NoError(t, err)

	long := strings.Repeat("s", 400)
	f.llm.SetChatResponse(long)
	for i := 0; i < 15; i++ {
		_, err := f.mgr.ProcessPlayerAction(ctx, "wait")
		require.NoError(t, err)
	}

	cur := f.mgr.Current()
	assert.Len(t, cur.ActionsTaken, 15)
	assert.Len(t, cur.ConversationHistory, 20)
	assert.Len(t, cur.ActionsTaken[14].SceneBefore, state.SceneSnapshotLength)
}

func TestProcessPlayerAction_Fallback(t *testing.T) {
	f := newFixture(t, defaultCampaign())
	ctx := context.Background()
	_, err := f.mgr.StartNewSession(ctx, "")
	require.NoError(t, err)

	f.llm.SetChatError(errors.New("timeout"))
	scene, err := f.mgr.ProcessPlayerAction(ctx, "Pick the lock")
	require.NoError(t, err)
	assert.Equal(t, "As you attempt to pick the lock, something unexpected happens...", scene)
}

func TestAutoSave(t *testing.T) {
	f := newFixture(t, defaultCampaign())
	ctx := context.Background()
	_, err := f.mgr.StartNewSession(ctx, "")
	require.NoError(t, err)
	saves := f.store.SaveCalls

	_, err = f.mgr.ProcessPlayerAction(ctx, "wait")
	require.NoError(t, err)
	assert.Equal(t, saves, f.store.SaveCalls, "no autosave before the interval")

	f.clock.Advance(6 * time.Minute)
	_, err = f.mgr.ProcessPlayerAction(ctx, "wait again")
	require.NoError(t, err)
	assert.Equal(t, saves+1, f.store.SaveCalls)

	saved, err := f.mgr.CheckAutoSave(ctx)
	require.NoError(t, err)
	assert.False(t, saved)

	f.clock.Advance(5 * time.Minute)
	saved, err = f.mgr.CheckAutoSave(ctx)
	require.NoError(t, err)
	assert.True(t, saved)
}

func TestSaveSession_UpdatesLastSave(t *testing.T) {
	f := newFixture(t, defaultCampaign())
	ctx := context.Background()

	assert.True(t, errors.Is(f.mgr.SaveSession(ctx, false), ErrNoActiveSession))

	_, err := f.mgr.StartNewSession(ctx, "")
	require.NoError(t, err)

	f.clock.Advance(4 * time.Minute)
	require.NoError(t, f.mgr.SaveSession(ctx, false))

	f.clock.Advance(2 * time.Minute)
	saved, err := f.mgr.CheckAutoSave(ctx)
	require.NoError(t, err)
	assert.False(t, saved, "manual save resets the autosave timer")

	info, err := f.mgr.Info()
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().Add(-2*time.Minute), info.LastSave)
}

func TestRunAutoSave_StopsOnCancel(t *testing.T) {
	f := newFixture(t, defaultCampaign())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.mgr.RunAutoSave(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunAutoSave did not return after cancel")
	}
}

func TestLoadSession(t *testing.T) {
	f := newFixture(t, defaultCampaign())
	ctx := context.Background()

	_, err := f.mgr.LoadSession(ctx, "")
	assert.True(t, errors.Is(err, ErrNoSessionsFound), "got %v", err)
	_, err = f.mgr.LoadSession(ctx, "session_missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound), "got %v", err)

	started, err := f.mgr.StartNewSession(ctx, "")
	require.NoError(t, err)
	_, err = f.mgr.ProcessPlayerAction(ctx, "wait")
	require.NoError(t, err)
	require.NoError(t, f.mgr.SaveSession(ctx, false))

	// a fresh manager picks up the most recent session
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	other := NewManager(f.config, loader.New(f.dir, nil, logger), f.store, gateway.New(f.llm, f.config, logger), logger)
	loaded, err := other.LoadSession(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, started.SessionID, loaded.SessionID)
	assert.Len(t, loaded.ActionsTaken, 1)

	_, err = other.ProcessPlayerAction(ctx, "continue")
	require.NoError(t, err)
}

func TestListAndDeleteSessions(t *testing.T) {
	f := newFixture(t, defaultCampaign())
	ctx := context.Background()

	sess, err := f.mgr.StartNewSession(ctx, "")
	require.NoError(t, err)

	list, err := f.mgr.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Motu", list[0].CharacterName)

	existed, err := f.mgr.DeleteSession(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Nil(t, f.mgr.Current())

	existed, err = f.mgr.DeleteSession(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestManager_WithFileStorage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	campaignDir := writeCampaign(t, defaultCampaign())
	sessionsDir := t.TempDir()

	cfg := config.Defaults()
	cfg.BackupEnabled = true

	store, err := filestore.NewFileStorage(sessionsDir, nil, logger)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	llm := services.NewMockLLMAPI()
	mgr := NewManager(cfg, loader.New(campaignDir, nil, logger), store, gateway.New(llm, cfg, logger), logger)
	ctx := context.Background()

	sess, err := mgr.StartNewSession(ctx, "")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(sessionsDir, sess.SessionID+".json"))
	require.NoError(t, err)
	backup, err := filepath.Glob(filepath.Join(sessionsDir, sess.SessionID+"_backup", "*.md"))
	require.NoError(t, err)
	assert.Len(t, backup, 3)

	_, err = mgr.ProcessPlayerAction(ctx, "I attack the crate")
	require.NoError(t, err)
	require.NoError(t, mgr.SaveSession(ctx, false))

	loaded, err := store.LoadSession(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Len(t, loaded.ActionsTaken, 1)
	assert.Equal(t, "Mock response", loaded.CurrentScene)
}
