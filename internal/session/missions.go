package session

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jwebster45206/solo-dm/pkg/campaign"
	"github.com/jwebster45206/solo-dm/pkg/mdparse"
	"github.com/jwebster45206/solo-dm/pkg/state"
)

var ErrUnknownMission = errors.New("unknown mission")

// encounterFile holds the random encounter table under a heading containing
// "Encounter".
const encounterFile = "oracle_tables"

// Missions returns the campaign's missions with this session's progress
// applied, in file order.
func (m *Manager) Missions() ([]*campaign.Mission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil, ErrNoActiveSession
	}
	return m.source(m.current).Missions(), nil
}

// CompleteObjective marks objective n (1-based) of a mission as done for
// this session. Campaign files are not modified.
func (m *Manager) CompleteObjective(mission string, n int) (*campaign.Mission, error) {
	var out *campaign.Mission
	err := m.mutate(func(sess *state.GameSession) error {
		mi := findMission(m.source(sess).Missions(), mission)
		if mi == nil {
			return fmt.Errorf("%w: %q", ErrUnknownMission, mission)
		}
		if n < 1 || n > len(mi.Objectives) {
			return fmt.Errorf("mission %q has no objective %d", mi.Name(), n)
		}
		objective := mi.Objectives[n-1]
		if err := mi.CompleteObjective(objective); err != nil {
			return err
		}
		p := sess.Progress(mi.Name())
		if !slices.Contains(p.CompletedObjectives, objective) {
			p.CompletedObjectives = append(p.CompletedObjectives, objective)
		}
		m.sessionLog(sess).Info("Objective completed",
			"mission", mi.Name(), "objective", objective, "percent", mi.CompletionPercentage())
		out = mi
		return nil
	})
	return out, err
}

// AddMissionNote records a progress note against a mission for this session.
func (m *Manager) AddMissionNote(mission, note string) (*campaign.Mission, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, fmt.Errorf("note is required")
	}
	var out *campaign.Mission
	err := m.mutate(func(sess *state.GameSession) error {
		mi := findMission(m.source(sess).Missions(), mission)
		if mi == nil {
			return fmt.Errorf("%w: %q", ErrUnknownMission, mission)
		}
		now := m.now()
		mi.AddProgressNote(note, now)
		p := sess.Progress(mi.Name())
		p.Notes = append(p.Notes, campaign.ProgressNote{Timestamp: now, Note: note})
		out = mi
		return nil
	})
	return out, err
}

// EncounterTable returns the list under the first "Encounter" heading of the
// oracle tables file, or nil.
func (m *Manager) EncounterTable() []string {
	f := m.campaign.Get(encounterFile)
	if f == nil {
		return nil
	}
	body, ok := mdparse.Heading(f.Content, "Encounter")
	if !ok {
		return nil
	}
	return mdparse.ListItems(body)
}
