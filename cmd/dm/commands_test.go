package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/solo-dm/internal/session"
	"github.com/jwebster45206/solo-dm/pkg/actor"
	"github.com/jwebster45206/solo-dm/pkg/dice"
	"github.com/jwebster45206/solo-dm/pkg/state"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		kind  commandKind
		args  []string
	}{
		{"h", cmdHelp, nil},
		{"HELP", cmdHelp, nil},
		{"  stat ", cmdStatus, nil},
		{"s", cmdStatus, nil},
		{"exit", cmdQuit, nil},
		{"q", cmdQuit, nil},
		{"/quit", cmdQuit, []string{}},
		{"I open the door", cmdAction, nil},
		{"status of the guards?", cmdAction, nil},
		{"/roll 2d6+3", cmdRoll, []string{"2d6+3"}},
		{"/ROLL 1d20 adv", cmdRoll, []string{"1d20", "adv"}},
		{"/check sleight of hand 12 dis", cmdCheck, []string{"sleight", "of", "hand", "12", "dis"}},
		{"/save", cmdSave, []string{}},
		{"/sessions", cmdSessions, []string{}},
		{"/copy", cmdCopy, []string{}},
		{"/pause", cmdPause, []string{}},
		{"/resume", cmdResume, []string{}},
		{"/end we found the map", cmdEnd, []string{"we", "found", "the", "map"}},
		{"/archive", cmdArchive, []string{}},
		{"/damage 7", cmdDamage, []string{"7"}},
		{"/dmg 2d6+1", cmdDamage, []string{"2d6+1"}},
		{"/heal 1d8", cmdHeal, []string{"1d8"}},
		{"/temphp 5", cmdTempHP, []string{"5"}},
		{"/levelup d10", cmdLevelUp, []string{"d10"}},
		{"/move The Salty Dog", cmdMove, []string{"The", "Salty", "Dog"}},
		{"/trust Captain Vex -2", cmdTrust, []string{"Captain", "Vex", "-2"}},
		{"/faction Harbor Guild +1", cmdFaction, []string{"Harbor", "Guild", "+1"}},
		{"/event The bell fell", cmdEvent, []string{"The", "bell", "fell"}},
		{"/missions", cmdMissions, []string{}},
		{"/objective 1 2", cmdObjective, []string{"1", "2"}},
		{"/note 1 Bram lied", cmdNote, []string{"1", "Bram", "lied"}},
		{"/attack 5 14 1d8+3 adv", cmdAttack, []string{"5", "14", "1d8+3", "adv"}},
		{"/init", cmdInitiative, []string{}},
		{"/savethrow dex 13", cmdSavingThrow, []string{"dex", "13"}},
		{"/encounter 30", cmdEncounter, []string{"30"}},
		{"/abilities", cmdAbilities, []string{}},
		{"/dance", cmdUnknown, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			c := parseCommand(tt.input)
			assert.Equal(t, tt.kind, c.kind)
			if tt.args != nil {
				assert.Equal(t, tt.args, c.args)
			}
		})
	}
}

func TestRollText(t *testing.T) {
	r := dice.NewSeededRoller(42)

	out, err := rollText(r, []string{"3d6+2"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "3d6+2 ["), out)
	assert.True(t, strings.HasSuffix(out, "(avg 12.5, range 5-20)"), out)

	out, err = rollText(r, []string{"1d20", "adv"})
	require.NoError(t, err)
	assert.Contains(t, out, "(advantage)")

	_, err = rollText(r, nil)
	assert.Error(t, err)

	_, err = rollText(r, []string{"1d20", "sideways"})
	assert.Error(t, err)

	_, err = rollText(r, []string{"2d6", "adv"})
	assert.True(t, errors.Is(err, dice.ErrInvalidAdvantageUse), "got %v", err)

	_, err = rollText(r, []string{"banana"})
	assert.True(t, errors.Is(err, dice.ErrInvalidNotation), "got %v", err)
}

func TestRunsInBackground(t *testing.T) {
	for _, k := range []commandKind{cmdAction, cmdHelp, cmdRoll, cmdCheck, cmdSave, cmdUnknown} {
		assert.False(t, k.runsInBackground(), "kind %d", k)
	}
	for _, k := range []commandKind{cmdPause, cmdDamage, cmdTrust, cmdMissions, cmdAbilities} {
		assert.True(t, k.runsInBackground(), "kind %d", k)
	}
}

func TestCheckText(t *testing.T) {
	r := dice.NewSeededRoller(7)
	c := actor.NewCharacter("Motu")
	c.Skills["stealth"] = 5

	out, err := checkText(r, c, []string{"stealth", "12"}, 15)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "stealth check (+5): d20+5"), out)
	assert.Contains(t, out, "vs DC 12")

	out, err = checkText(r, c, []string{"stealth"}, 15)
	require.NoError(t, err)
	assert.Contains(t, out, "vs DC 15")

	out, err = checkText(r, c, []string{"sleight", "of", "hand", "10", "dis"}, 15)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "sleight of hand check"), out)
	assert.Contains(t, out, "(disadvantage)")
	assert.Contains(t, out, "vs DC 10")

	_, err = checkText(r, c, nil, 15)
	assert.Error(t, err)

	_, err = checkText(r, nil, []string{"stealth"}, 15)
	assert.True(t, errors.Is(err, session.ErrNoActiveSession))
}

func TestStatusText(t *testing.T) {
	now := time.Date(2026, 10, 17, 21, 0, 0, 0, time.UTC)
	info := session.Info{
		SessionID:     "session_20261017_200000_abcd1234",
		Status:        state.StatusActive,
		CharacterName: "Motu",
		Character:     "Level 3 | HP: 20/24 | AC: 13",
		Location:      "Docks",
		Actions:       4,
		Elapsed:       time.Hour,
	}

	out := statusText(info, now)
	assert.Contains(t, out, "Session: session_20261017_200000_abcd1234 [active]")
	assert.Contains(t, out, "Location: Docks")
	assert.Contains(t, out, "Actions: 4")
	assert.Contains(t, out, "Last save: never")

	info.LastSave = now.Add(-90 * time.Second)
	assert.Contains(t, statusText(info, now), "Last save: 1m30s ago")
}

func TestSessionsText(t *testing.T) {
	assert.Equal(t, "No saved sessions.\n", sessionsText(nil))

	out := sessionsText([]state.SessionSummary{{
		SessionID:   "session_a",
		ActionCount: 2,
		Status:      state.StatusPaused,
		ModTime:     time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC),
	}})
	assert.Contains(t, out, "session_a  Unknown  2 actions  paused")
}
