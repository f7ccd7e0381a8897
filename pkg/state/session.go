// Package state holds the GameSession aggregate persisted by the session store.
package state

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/solo-dm/pkg/actor"
	"github.com/jwebster45206/solo-dm/pkg/campaign"
	"github.com/jwebster45206/solo-dm/pkg/chat"
)

var (
	ErrSessionReadOnly   = errors.New("session is archived and read-only")
	ErrInvalidTransition = errors.New("invalid session status transition")
	ErrInvalidSessionID  = errors.New("invalid session id")
)

// Status is a session's lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

var transitions = map[Status][]Status{
	StatusActive:    {StatusPaused, StatusCompleted},
	StatusPaused:    {StatusActive, StatusCompleted},
	StatusCompleted: {StatusArchived},
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s Status) CanTransitionTo(next Status) bool {
	return slices.Contains(transitions[s], next)
}

// ReadOnly reports whether sessions in this state reject mutation.
func (s Status) ReadOnly() bool {
	return s == StatusArchived
}

const (
	// SceneSnapshotLength bounds the scene text stored with each action.
	SceneSnapshotLength = 100
	// DefaultMaxHistory is the conversation history cap, in messages.
	DefaultMaxHistory = 20
)

// ActionEntry is one player action in the session's append-only log.
type ActionEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"`
	SceneBefore string    `json:"scene_before,omitempty"`
	Result      string    `json:"result,omitempty"`
}

// MissionProgress is what play has added to a mission since the campaign
// files were written.
type MissionProgress struct {
	CompletedObjectives []string                `json:"completed_objectives,omitempty"`
	Notes               []campaign.ProgressNote `json:"notes,omitempty"`
}

// GameSession is one continuous play unit.
type GameSession struct {
	SessionID           string                      `json:"session_id"` // immutable once assigned
	Status              Status                      `json:"status"`
	Character           *actor.Character            `json:"character"`
	CurrentScene        string                      `json:"current_scene"`
	CurrentLocation     string                      `json:"current_location,omitempty"`
	SessionStart        time.Time                   `json:"session_start"`
	ActionsTaken        []ActionEntry               `json:"actions_taken"`
	ConversationHistory []chat.ChatMessage          `json:"conversation_history"`
	ContextSummary      string                      `json:"context_summary,omitempty"`
	NPCTrust            map[string]int              `json:"npc_trust,omitempty"`        // trust changes made during play, by NPC name
	MissionProgress     map[string]*MissionProgress `json:"mission_progress,omitempty"` // by mission title
	SavedAt             time.Time                   `json:"saved_at,omitzero"`
}

// SessionSummary is the minimal metadata shown in session listings.
type SessionSummary struct {
	SessionID     string    `json:"session_id"`
	CharacterName string    `json:"character_name"`
	SessionStart  time.Time `json:"session_start"`
	ActionCount   int       `json:"action_count"`
	Status        Status    `json:"status"`
	ModTime       time.Time `json:"mod_time"`
	Path          string    `json:"path,omitempty"`
}

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// NewSessionID returns "session_YYYYMMDD_HHMMSS_<8 hex>". The random suffix
// keeps ids unique across calls within the same second.
func NewSessionID(now time.Time) string {
	return fmt.Sprintf("session_%s_%s", now.Format("20060102_150405"), uuid.NewString()[:8])
}

// ValidateSessionID rejects ids that cannot be used as a file name.
func ValidateSessionID(id string) error {
	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return nil
}

// NewGameSession creates an active session for character.
func NewGameSession(id string, character *actor.Character, now time.Time) *GameSession {
	if character == nil {
		character = actor.NewCharacter("")
	}
	return &GameSession{
		SessionID:           id,
		Status:              StatusActive,
		Character:           character,
		CurrentLocation:     character.CurrentLocation,
		SessionStart:        now,
		ActionsTaken:        make([]ActionEntry, 0),
		ConversationHistory: make([]chat.ChatMessage, 0),
	}
}

// Transition moves the session to next.
func (s *GameSession) Transition(next Status) error {
	if s.Status.ReadOnly() {
		return ErrSessionReadOnly
	}
	if !s.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, next)
	}
	s.Status = next
	return nil
}

// CheckWritable returns ErrSessionReadOnly for archived sessions.
func (s *GameSession) CheckWritable() error {
	if s.Status.ReadOnly() {
		return ErrSessionReadOnly
	}
	return nil
}

// LogAction appends an action with a snapshot of the current scene and
// returns its index in the log.
func (s *GameSession) LogAction(action string, at time.Time) int {
	s.ActionsTaken = append(s.ActionsTaken, ActionEntry{
		Timestamp:   at,
		Action:      action,
		SceneBefore: snapshot(s.CurrentScene, SceneSnapshotLength),
	})
	return len(s.ActionsTaken) - 1
}

// SetResult records the outcome of a logged action.
func (s *GameSession) SetResult(index int, result string) {
	if index >= 0 && index < len(s.ActionsTaken) {
		s.ActionsTaken[index].Result = result
	}
}

// AppendHistory adds messages and keeps at most max of the newest.
func (s *GameSession) AppendHistory(max int, msgs ...chat.ChatMessage) {
	if max <= 0 {
		max = DefaultMaxHistory
	}
	s.ConversationHistory = append(s.ConversationHistory, msgs...)
	if n := len(s.ConversationHistory); n > max {
		s.ConversationHistory = slices.Clone(s.ConversationHistory[n-max:])
	}
}

// Summary returns listing metadata. ModTime and Path are left to the store.
func (s *GameSession) Summary() SessionSummary {
	sum := SessionSummary{
		SessionID:    s.SessionID,
		SessionStart: s.SessionStart,
		ActionCount:  len(s.ActionsTaken),
		Status:       s.Status,
	}
	if s.Character != nil {
		sum.CharacterName = s.Character.Name
	}
	if sum.Status == "" {
		sum.Status = StatusActive
	}
	return sum
}

// Clone returns a deep copy.
func (s *GameSession) Clone() *GameSession {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Character = s.Character.Clone()
	cp.ActionsTaken = slices.Clone(s.ActionsTaken)
	cp.ConversationHistory = slices.Clone(s.ConversationHistory)
	cp.NPCTrust = maps.Clone(s.NPCTrust)
	if s.MissionProgress != nil {
		cp.MissionProgress = make(map[string]*MissionProgress, len(s.MissionProgress))
		for k, p := range s.MissionProgress {
			cp.MissionProgress[k] = &MissionProgress{
				CompletedObjectives: slices.Clone(p.CompletedObjectives),
				Notes:               slices.Clone(p.Notes),
			}
		}
	}
	return &cp
}

// Progress returns the progress record for a mission, creating it if needed.
func (s *GameSession) Progress(mission string) *MissionProgress {
	if s.MissionProgress == nil {
		s.MissionProgress = make(map[string]*MissionProgress)
	}
	p, ok := s.MissionProgress[mission]
	if !ok {
		p = &MissionProgress{}
		s.MissionProgress[mission] = p
	}
	return p
}

func snapshot(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
