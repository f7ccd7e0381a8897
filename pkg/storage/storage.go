package storage

import (
	"context"
	"errors"

	"github.com/jwebster45206/solo-dm/pkg/campaign"
	"github.com/jwebster45206/solo-dm/pkg/state"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoSessionsFound = errors.New("no saved sessions found")
)

// Storage defines a unified interface for all persistence operations.
// Sessions are JSON files; campaign metadata lives in a local ledger.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Session operations
	SaveSession(ctx context.Context, s *state.GameSession) error
	LoadSession(ctx context.Context, id string) (*state.GameSession, error)
	// LatestSessionID returns the most recently modified session, or ErrNoSessionsFound.
	LatestSessionID(ctx context.Context) (string, error)
	ListSessions(ctx context.Context) ([]state.SessionSummary, error)
	// DeleteSession reports whether a session file existed.
	DeleteSession(ctx context.Context, id string) (bool, error)

	// BackupCampaign copies every *.md file in campaignDir into the session's
	// backup directory and returns the number copied.
	BackupCampaign(ctx context.Context, id, campaignDir string) (int, error)

	// Campaign ledger operations
	LoadCampaignState(ctx context.Context, name string) (*campaign.State, error)
	SaveCampaignState(ctx context.Context, st *campaign.State) error
}
