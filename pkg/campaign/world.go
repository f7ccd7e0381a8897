package campaign

import (
	"slices"
	"time"

	"github.com/jwebster45206/solo-dm/pkg/actor"
)

// Faction is an organization with a standing toward the player.
type Faction struct {
	Name     string `json:"name"`
	Standing int    `json:"standing"` // same -5..+5 scale as NPC trust
	Notes    string `json:"notes,omitempty"`
}

// AdjustStanding shifts standing by delta, clamped to the trust range.
func (f *Faction) AdjustStanding(delta int) int {
	f.Standing = actor.ClampTrust(f.Standing + delta)
	return f.Standing
}

// Event is an entry in the campaign's major-event log.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id,omitempty"`
	Summary   string    `json:"summary"`
}

// State is the aggregate campaign metadata carried across sessions.
type State struct {
	CampaignName     string              `json:"campaign_name"`
	TotalSessions    int                 `json:"total_sessions"`
	LastPlayed       time.Time           `json:"last_played"`
	MajorEvents      []Event             `json:"major_events,omitempty"`
	ImmediateContext string              `json:"immediate_context,omitempty"`
	VisitedLocations []string            `json:"visited_locations,omitempty"`
	Factions         map[string]*Faction `json:"factions,omitempty"`
}

// NewState creates empty campaign metadata.
func NewState(name string) *State {
	return &State{CampaignName: name, Factions: map[string]*Faction{}}
}

// RecordSession counts a finished session. TotalSessions never decreases.
func (s *State) RecordSession(sessionID, summary string, at time.Time) {
	s.TotalSessions++
	if at.After(s.LastPlayed) {
		s.LastPlayed = at
	}
	if summary != "" {
		s.RecordEvent(sessionID, summary, at)
	}
}

// RecordEvent appends to the major-event log.
func (s *State) RecordEvent(sessionID, summary string, at time.Time) {
	s.MajorEvents = append(s.MajorEvents, Event{Timestamp: at, SessionID: sessionID, Summary: summary})
}

// Visit records a location once.
func (s *State) Visit(location string) {
	if location == "" || slices.Contains(s.VisitedLocations, location) {
		return
	}
	s.VisitedLocations = append(s.VisitedLocations, location)
}
