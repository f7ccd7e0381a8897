package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jwebster45206/solo-dm/pkg/actor"
	"github.com/jwebster45206/solo-dm/pkg/campaign"
	"github.com/jwebster45206/solo-dm/pkg/state"
)

// Pause suspends the active session.
func (m *Manager) Pause(ctx context.Context) error {
	return m.transition(ctx, state.StatusPaused)
}

// Resume reactivates a paused session.
func (m *Manager) Resume(ctx context.Context) error {
	return m.transition(ctx, state.StatusActive)
}

// Complete finishes the session and records it in the campaign ledger.
func (m *Manager) Complete(ctx context.Context, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := m.transitionLocked(ctx, state.StatusCompleted)
	if err != nil {
		return err
	}

	if summary == "" {
		summary = fmt.Sprintf("%s ended the session at %s after %d actions",
			sess.Character.Name, valueOr(sess.CurrentLocation, "an unknown place"), len(sess.ActionsTaken))
	}
	now := m.now()
	m.updateLedger(ctx, func(st *campaign.State) {
		st.RecordSession(sess.SessionID, summary, now)
		st.Visit(sess.CurrentLocation)
		st.ImmediateContext = sess.CurrentScene
	})
	return nil
}

// Archive makes a completed session read-only.
func (m *Manager) Archive(ctx context.Context) error {
	return m.transition(ctx, state.StatusArchived)
}

func (m *Manager) transition(ctx context.Context, next state.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.transitionLocked(ctx, next)
	return err
}

func (m *Manager) transitionLocked(ctx context.Context, next state.Status) (*state.GameSession, error) {
	sess := m.current
	if sess == nil {
		return nil, ErrNoActiveSession
	}
	prev := sess.Status
	if err := sess.Transition(next); err != nil {
		return nil, err
	}
	if err := m.saveLocked(ctx, sess, false); err != nil {
		sess.Status = prev
		return nil, err
	}
	m.sessionLog(sess).Info("Session status changed", "from", prev, "to", next)
	return sess, nil
}

// Info is a point-in-time status snapshot of the active session.
type Info struct {
	SessionID     string
	Status        state.Status
	CharacterName string
	Character     string // level, HP and AC summary
	Location      string
	Scene         string
	Actions       int
	SessionStart  time.Time
	LastSave      time.Time
	Elapsed       time.Duration
}

// Info returns a snapshot of the active session.
func (m *Manager) Info() (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.current
	if sess == nil {
		return Info{}, ErrNoActiveSession
	}
	return Info{
		SessionID:     sess.SessionID,
		Status:        sess.Status,
		CharacterName: sess.Character.Name,
		Character:     sess.Character.Summary(),
		Location:      sess.CurrentLocation,
		Scene:         sess.CurrentScene,
		Actions:       len(sess.ActionsTaken),
		SessionStart:  sess.SessionStart,
		LastSave:      m.lastSave,
		Elapsed:       m.now().Sub(sess.SessionStart),
	}, nil
}

// mutate runs fn against the writable active session.
func (m *Manager) mutate(fn func(sess *state.GameSession) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.current
	if sess == nil {
		return ErrNoActiveSession
	}
	if err := sess.CheckWritable(); err != nil {
		return err
	}
	return fn(sess)
}

// MoveTo changes the party's location.
func (m *Manager) MoveTo(ctx context.Context, location string) error {
	location = strings.TrimSpace(location)
	if location == "" {
		return fmt.Errorf("location is required")
	}
	return m.mutate(func(sess *state.GameSession) error {
		sess.CurrentLocation = location
		sess.Character.CurrentLocation = location
		m.updateLedger(ctx, func(st *campaign.State) {
			st.Visit(location)
		})
		return nil
	})
}

// AdjustNPCTrust shifts an NPC's trust for this session and returns the
// clamped result. Campaign files are not modified.
func (m *Manager) AdjustNPCTrust(name string, delta int) (int, error) {
	var trust int
	err := m.mutate(func(sess *state.GameSession) error {
		npc := findNPC(m.source(sess).NPCs(), name)
		if npc == nil {
			return fmt.Errorf("unknown NPC %q", name)
		}
		trust = npc.AdjustTrust(delta)
		if sess.NPCTrust == nil {
			sess.NPCTrust = make(map[string]int)
		}
		sess.NPCTrust[npc.Name] = trust
		return nil
	})
	return trust, err
}

// ApplyDamage damages the session character, temporary HP first.
func (m *Manager) ApplyDamage(amount int) (*actor.Character, error) {
	var c *actor.Character
	err := m.mutate(func(sess *state.GameSession) error {
		if amount < 0 {
			return fmt.Errorf("damage must not be negative, got %d", amount)
		}
		sess.Character.TakeDamage(amount)
		c = sess.Character.Clone()
		return nil
	})
	return c, err
}

// ApplyHealing heals the session character up to max HP.
func (m *Manager) ApplyHealing(amount int) (*actor.Character, error) {
	var c *actor.Character
	err := m.mutate(func(sess *state.GameSession) error {
		if amount < 0 {
			return fmt.Errorf("healing must not be negative, got %d", amount)
		}
		sess.Character.Heal(amount)
		c = sess.Character.Clone()
		return nil
	})
	return c, err
}

// GrantTempHP gives the session character temporary HP. The larger of the
// current and granted values is kept.
func (m *Manager) GrantTempHP(amount int) (*actor.Character, error) {
	var c *actor.Character
	err := m.mutate(func(sess *state.GameSession) error {
		if amount < 0 {
			return fmt.Errorf("temporary HP must not be negative, got %d", amount)
		}
		sess.Character.AddTempHP(amount)
		c = sess.Character.Clone()
		return nil
	})
	return c, err
}

// LevelUp advances the session character one level.
func (m *Manager) LevelUp(hpGain int) (*actor.Character, error) {
	var c *actor.Character
	err := m.mutate(func(sess *state.GameSession) error {
		if err := sess.Character.LevelUp(hpGain); err != nil {
			return err
		}
		c = sess.Character.Clone()
		m.sessionLog(sess).Info("Character leveled up", "level", c.Level, "max_hp", c.MaxHitPoints)
		return nil
	})
	return c, err
}

// AdjustFactionStanding shifts a faction's standing in the campaign ledger
// and returns the clamped result. Unknown factions start at 0.
func (m *Manager) AdjustFactionStanding(ctx context.Context, name string, delta int) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("faction name is required")
	}
	var standing int
	err := m.mutate(func(sess *state.GameSession) error {
		return m.editLedger(ctx, func(st *campaign.State) error {
			f := findFaction(st, name)
			if f == nil {
				f = &campaign.Faction{Name: name}
				if st.Factions == nil {
					st.Factions = map[string]*campaign.Faction{}
				}
				st.Factions[name] = f
			}
			standing = f.AdjustStanding(delta)
			return nil
		})
	})
	return standing, err
}

func findFaction(st *campaign.State, name string) *campaign.Faction {
	for key, f := range st.Factions {
		if strings.EqualFold(key, name) {
			return f
		}
	}
	return nil
}

// RecordEvent appends a major event to the campaign ledger.
func (m *Manager) RecordEvent(ctx context.Context, summary string) error {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return fmt.Errorf("event summary is required")
	}
	return m.mutate(func(sess *state.GameSession) error {
		m.updateLedger(ctx, func(st *campaign.State) {
			st.RecordEvent(sess.SessionID, summary, m.now())
		})
		return nil
	})
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
