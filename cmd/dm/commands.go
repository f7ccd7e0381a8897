package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jwebster45206/solo-dm/internal/session"
	"github.com/jwebster45206/solo-dm/pkg/actor"
	"github.com/jwebster45206/solo-dm/pkg/dice"
	"github.com/jwebster45206/solo-dm/pkg/state"
)

type commandKind int

const (
	cmdAction commandKind = iota
	cmdHelp
	cmdStatus
	cmdQuit
	cmdRoll
	cmdCheck
	cmdSave
	cmdSessions
	cmdCopy

	// session lifecycle
	cmdPause
	cmdResume
	cmdEnd
	cmdArchive

	// character
	cmdDamage
	cmdHeal
	cmdTempHP
	cmdLevelUp

	// world
	cmdMove
	cmdTrust
	cmdFaction
	cmdEvent

	// missions
	cmdMissions
	cmdObjective
	cmdNote

	// dice
	cmdAttack
	cmdInitiative
	cmdSavingThrow
	cmdEncounter
	cmdAbilities

	cmdUnknown
)

var commandNames = map[string]commandKind{
	"help":      cmdHelp,
	"h":         cmdHelp,
	"status":    cmdStatus,
	"stat":      cmdStatus,
	"s":         cmdStatus,
	"quit":      cmdQuit,
	"exit":      cmdQuit,
	"q":         cmdQuit,
	"roll":      cmdRoll,
	"r":         cmdRoll,
	"check":     cmdCheck,
	"c":         cmdCheck,
	"save":      cmdSave,
	"sessions":  cmdSessions,
	"copy":      cmdCopy,
	"pause":     cmdPause,
	"resume":    cmdResume,
	"end":       cmdEnd,
	"archive":   cmdArchive,
	"damage":    cmdDamage,
	"dmg":       cmdDamage,
	"heal":      cmdHeal,
	"temphp":    cmdTempHP,
	"levelup":   cmdLevelUp,
	"move":      cmdMove,
	"go":        cmdMove,
	"trust":     cmdTrust,
	"faction":   cmdFaction,
	"event":     cmdEvent,
	"missions":  cmdMissions,
	"m":         cmdMissions,
	"objective": cmdObjective,
	"obj":       cmdObjective,
	"note":      cmdNote,
	"attack":    cmdAttack,
	"atk":       cmdAttack,
	"init":      cmdInitiative,
	"savethrow": cmdSavingThrow,
	"save-vs":   cmdSavingThrow,
	"encounter": cmdEncounter,
	"abilities": cmdAbilities,
}

// runsInBackground reports whether the command goes through playCommands.
func (k commandKind) runsInBackground() bool {
	return k >= cmdPause && k < cmdUnknown
}

type command struct {
	kind commandKind
	name string
	args []string
}

// parseCommand classifies a line of input. The bare words help, status and
// quit (and their short forms) are commands; anything else without a leading
// slash is a player action.
func parseCommand(input string) command {
	input = strings.TrimSpace(input)
	switch strings.ToLower(input) {
	case "help", "h":
		return command{kind: cmdHelp}
	case "status", "stat", "s":
		return command{kind: cmdStatus}
	case "quit", "exit", "q":
		return command{kind: cmdQuit}
	}
	if !strings.HasPrefix(input, "/") {
		return command{kind: cmdAction}
	}

	fields := strings.Fields(input)
	name := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	c := command{kind: cmdUnknown, name: name, args: fields[1:]}
	if k, ok := commandNames[name]; ok {
		c.kind = k
	}
	return c
}

const helpText = `Commands:
• help | h          Show this help
• status | stat | s Show session status
• quit | exit | q   Save and quit
• /roll <dice> [adv|dis]          Roll dice, e.g. /roll 2d6+3
• /check <skill> [dc] [adv|dis]   Skill or ability check
• /save             Save the session now
• /sessions         List saved sessions
• /copy             Copy the last narration

Session:
• /pause | /resume                Suspend or continue play
• /end [summary]                  Complete the session and log it
• /archive                        Make a completed session read-only

Character:
• /damage <n|dice>                Take damage, temporary HP first
• /heal <n|dice>                  Recover hit points
• /temphp <n>                     Gain temporary hit points
• /levelup <hit die>              Roll the hit die and gain a level

World:
• /move <location>                Travel somewhere
• /trust <npc> <+N|-N>            Shift an NPC's trust
• /faction <name> <+N|-N>         Shift a faction's standing
• /event <text>                   Record a major event

Missions:
• /missions                       List missions and objectives
• /objective <mission#> <obj#>    Complete an objective
• /note <mission#> <text>         Add a progress note

Dice:
• /attack <bonus> <ac> [dice] [adv|dis]  Attack roll with damage on a hit
• /init                           Roll initiative
• /savethrow <ability> [dc] [adv|dis]    Saving throw
• /encounter [chance%]            Random encounter check
• /abilities                      Roll six ability scores

Anything else is sent to the DM as your action.
`

// rollText handles /roll <notation> [adv|dis].
func rollText(r *dice.Roller, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("usage: /roll <dice> [adv|dis]")
	}
	mode := dice.Normal
	if len(args) > 1 {
		m, ok := dice.ParseMode(args[1])
		if !ok {
			return "", fmt.Errorf("unknown roll mode %q", args[1])
		}
		mode = m
	}
	roll, err := r.RollNotation(args[0], mode)
	if err != nil {
		return "", err
	}
	lo, hi := dice.Range(roll.Spec)
	return fmt.Sprintf("%s  (avg %.1f, range %d-%d)", dice.Format(roll), dice.Average(roll.Spec), lo, hi), nil
}

// checkText handles /check <skill> [dc] [adv|dis]. Skills may span several
// words; the DC defaults to defaultDC.
func checkText(r *dice.Roller, c *actor.Character, args []string, defaultDC int) (string, error) {
	if c == nil {
		return "", session.ErrNoActiveSession
	}
	mode := dice.Normal
	if n := len(args); n > 1 {
		if m, ok := dice.ParseMode(args[n-1]); ok {
			mode = m
			args = args[:n-1]
		}
	}
	dc := defaultDC
	if n := len(args); n > 1 {
		if v, err := strconv.Atoi(args[n-1]); err == nil {
			dc = v
			args = args[:n-1]
		}
	}
	if len(args) == 0 {
		return "", fmt.Errorf("usage: /check <skill> [dc] [adv|dis]")
	}
	if dc < 1 {
		return "", fmt.Errorf("difficulty class must be positive, got %d", dc)
	}

	skill := strings.Join(args, " ")
	mod := c.SkillModifier(skill)
	check, err := r.SkillCheck(mod, dc, mode)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s check (%+d): %s", skill, mod, dice.FormatCheck(check)), nil
}

func statusText(info session.Info, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Session: %s [%s]\n", info.SessionID, info.Status))
	sb.WriteString(fmt.Sprintf("Character: %s (%s)\n", info.CharacterName, info.Character))
	if info.Location != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", info.Location))
	}
	sb.WriteString(fmt.Sprintf("Actions: %d\n", info.Actions))
	sb.WriteString(fmt.Sprintf("Playing for: %s\n", info.Elapsed.Round(time.Minute)))
	if info.LastSave.IsZero() {
		sb.WriteString("Last save: never\n")
	} else {
		sb.WriteString(fmt.Sprintf("Last save: %s ago\n", now.Sub(info.LastSave).Round(time.Second)))
	}
	return sb.String()
}

func sessionsText(list []state.SessionSummary) string {
	if len(list) == 0 {
		return "No saved sessions.\n"
	}
	var sb strings.Builder
	for _, s := range list {
		sb.WriteString(fmt.Sprintf("• %s  %s  %d actions  %s  (%s)\n",
			s.SessionID, valueOr(s.CharacterName, "Unknown"), s.ActionCount, s.Status,
			s.ModTime.Format("2006-01-02 15:04")))
	}
	return sb.String()
}

func sessionLabel(s state.SessionSummary) string {
	return fmt.Sprintf("%s · %s · %d actions · %s",
		valueOr(s.CharacterName, "Unknown"), s.Status, s.ActionCount, s.ModTime.Format("Jan 2 15:04"))
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
