package storage

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jwebster45206/solo-dm/pkg/campaign"
	"github.com/jwebster45206/solo-dm/pkg/state"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu        sync.RWMutex
	sessions  map[string]*state.GameSession
	modTimes  map[string]time.Time
	campaigns map[string]*campaign.State
	backups   map[string]string
	pingError error
	saveError error

	SaveCalls int
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		sessions:  make(map[string]*state.GameSession),
		modTimes:  make(map[string]time.Time),
		campaigns: make(map[string]*campaign.State),
		backups:   make(map[string]string),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail on SaveSession
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveSession stores a deep copy of the session
func (m *MockStorage) SaveSession(ctx context.Context, s *state.GameSession) error {
	if s == nil {
		return errors.New("session cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.saveError != nil {
		return m.saveError
	}
	m.sessions[s.SessionID] = s.Clone()
	m.modTimes[s.SessionID] = time.Now()
	return nil
}

// LoadSession returns a copy of a saved session
func (m *MockStorage) LoadSession(ctx context.Context, id string) (*state.GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

// LatestSessionID returns the most recently saved session id
func (m *MockStorage) LatestSessionID(ctx context.Context) (string, error) {
	list, _ := m.ListSessions(ctx)
	if len(list) == 0 {
		return "", ErrNoSessionsFound
	}
	return list[0].SessionID, nil
}

// ListSessions returns summaries, newest first
func (m *MockStorage) ListSessions(ctx context.Context) ([]state.SessionSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]state.SessionSummary, 0, len(m.sessions))
	for id, s := range m.sessions {
		sum := s.Summary()
		sum.ModTime = m.modTimes[id]
		out = append(out, sum)
	}
	slices.SortFunc(out, func(a, b state.SessionSummary) int {
		if c := b.ModTime.Compare(a.ModTime); c != 0 {
			return c
		}
		return strings.Compare(b.SessionID, a.SessionID)
	})
	return out, nil
}

// DeleteSession removes a session
func (m *MockStorage) DeleteSession(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	delete(m.modTimes, id)
	return ok, nil
}

// BackupCampaign records the requested backup without touching disk
func (m *MockStorage) BackupCampaign(ctx context.Context, id, campaignDir string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backups[id] = campaignDir
	return 0, nil
}

// BackedUp reports whether BackupCampaign was called for id
func (m *MockStorage) BackedUp(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.backups[id]
	return ok
}

// LoadCampaignState returns saved campaign metadata, or a fresh state
func (m *MockStorage) LoadCampaignState(ctx context.Context, name string) (*campaign.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.campaigns[name]; ok {
		return cloneState(st), nil
	}
	return campaign.NewState(name), nil
}

// SaveCampaignState stores campaign metadata
func (m *MockStorage) SaveCampaignState(ctx context.Context, st *campaign.State) error {
	if st == nil {
		return errors.New("campaign state cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaigns[st.CampaignName] = cloneState(st)
	return nil
}

func cloneState(st *campaign.State) *campaign.State {
	cp := *st
	cp.MajorEvents = slices.Clone(st.MajorEvents)
	cp.VisitedLocations = slices.Clone(st.VisitedLocations)
	cp.Factions = make(map[string]*campaign.Faction, len(st.Factions))
	for k, f := range st.Factions {
		fc := *f
		cp.Factions[k] = &fc
	}
	return &cp
}
