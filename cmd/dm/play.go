package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jwebster45206/solo-dm/internal/session"
	"github.com/jwebster45206/solo-dm/pkg/actor"
	"github.com/jwebster45206/solo-dm/pkg/campaign"
	"github.com/jwebster45206/solo-dm/pkg/dice"
)

// sessionControl is the slice of the session manager that console commands drive.
type sessionControl interface {
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Complete(ctx context.Context, summary string) error
	Archive(ctx context.Context) error

	MoveTo(ctx context.Context, location string) error
	AdjustNPCTrust(name string, delta int) (int, error)
	AdjustFactionStanding(ctx context.Context, name string, delta int) (int, error)
	RecordEvent(ctx context.Context, summary string) error

	ApplyDamage(amount int) (*actor.Character, error)
	ApplyHealing(amount int) (*actor.Character, error)
	GrantTempHP(amount int) (*actor.Character, error)
	LevelUp(hpGain int) (*actor.Character, error)

	Missions() ([]*campaign.Mission, error)
	CompleteObjective(mission string, n int) (*campaign.Mission, error)
	AddMissionNote(mission, note string) (*campaign.Mission, error)
	EncounterTable() []string
}

var _ sessionControl = (*session.Manager)(nil)

// playCommands runs the commands that change or consult the session.
// character is a snapshot of the session character and may be nil.
type playCommands struct {
	ctl       sessionControl
	roller    *dice.Roller
	character *actor.Character
	defaultDC int
}

// run executes c and returns the text to show the player.
func (p playCommands) run(ctx context.Context, c command) (string, error) {
	switch c.kind {
	case cmdPause:
		if err := p.ctl.Pause(ctx); err != nil {
			return "", err
		}
		return "Session paused. Use /resume to continue.", nil
	case cmdResume:
		if err := p.ctl.Resume(ctx); err != nil {
			return "", err
		}
		return "Session resumed.", nil
	case cmdEnd:
		if err := p.ctl.Complete(ctx, strings.Join(c.args, " ")); err != nil {
			return "", err
		}
		return "Session completed and recorded in the campaign log. Use /archive to make it read-only.", nil
	case cmdArchive:
		if err := p.ctl.Archive(ctx); err != nil {
			return "", err
		}
		return "Session archived.", nil

	case cmdDamage:
		return p.damage(c.args)
	case cmdHeal:
		return p.heal(c.args)
	case cmdTempHP:
		return p.tempHP(c.args)
	case cmdLevelUp:
		return p.levelUp(c.args)

	case cmdMove:
		location := strings.Join(c.args, " ")
		if err := p.ctl.MoveTo(ctx, location); err != nil {
			return "", err
		}
		return "You are now at " + location + ".", nil
	case cmdTrust:
		name, delta, err := nameAndDelta(c.args, "/trust <npc> <+N|-N>")
		if err != nil {
			return "", err
		}
		trust, err := p.ctl.AdjustNPCTrust(name, delta)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s trust is now %+d.", name, trust), nil
	case cmdFaction:
		name, delta, err := nameAndDelta(c.args, "/faction <name> <+N|-N>")
		if err != nil {
			return "", err
		}
		standing, err := p.ctl.AdjustFactionStanding(ctx, name, delta)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s standing is now %+d.", name, standing), nil
	case cmdEvent:
		if err := p.ctl.RecordEvent(ctx, strings.Join(c.args, " ")); err != nil {
			return "", err
		}
		return "Event recorded.", nil

	case cmdMissions:
		missions, err := p.ctl.Missions()
		if err != nil {
			return "", err
		}
		return missionsText(missions), nil
	case cmdObjective:
		return p.objective(c.args)
	case cmdNote:
		return p.note(c.args)

	case cmdAttack:
		return p.attack(c.args)
	case cmdInitiative:
		if p.character == nil {
			return "", session.ErrNoActiveSession
		}
		mod := p.character.Modifier("dexterity")
		roll, err := p.roller.Initiative(mod)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Initiative (%+d): %s", mod, dice.Format(roll)), nil
	case cmdSavingThrow:
		return p.savingThrow(c.args)
	case cmdEncounter:
		return p.encounter(c.args)
	case cmdAbilities:
		scores := p.roller.AbilityScores()
		parts := make([]string, len(scores))
		for i, s := range scores {
			parts[i] = fmt.Sprintf("%d (%+d)", s, actor.AbilityModifier(s))
		}
		return "Ability scores (4d6 drop lowest): " + strings.Join(parts, ", "), nil
	}
	return "", fmt.Errorf("unknown command /%s", c.name)
}

// amount reads a fixed number or a dice expression. Dice totals below zero
// count as zero.
func (p playCommands) amount(arg string) (int, string, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 0 {
			return 0, "", fmt.Errorf("amount must not be negative, got %d", n)
		}
		return n, "", nil
	}
	roll, err := p.roller.RollNotation(arg, dice.Normal)
	if err != nil {
		return 0, "", err
	}
	return roll.Applied(), dice.Format(roll) + "\n", nil
}

func (p playCommands) damage(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("usage: /damage <amount|dice>")
	}
	n, rolled, err := p.amount(args[0])
	if err != nil {
		return "", err
	}
	c, err := p.ctl.ApplyDamage(n)
	if err != nil {
		return "", err
	}
	text := fmt.Sprintf("%sTook %d damage. %s", rolled, n, hpText(c))
	if c.IsDown() {
		text += "\nYou are down!"
	}
	return text, nil
}

func (p playCommands) heal(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("usage: /heal <amount|dice>")
	}
	n, rolled, err := p.amount(args[0])
	if err != nil {
		return "", err
	}
	c, err := p.ctl.ApplyHealing(n)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%sHealed %d. %s", rolled, n, hpText(c)), nil
}

func (p playCommands) tempHP(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("usage: /temphp <amount>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return "", fmt.Errorf("invalid amount %q", args[0])
	}
	c, err := p.ctl.GrantTempHP(n)
	if err != nil {
		return "", err
	}
	return hpText(c), nil
}

// levelUp rolls the hit die for the next level and applies the gain.
func (p playCommands) levelUp(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("usage: /levelup <hit die>, e.g. /levelup d8")
	}
	if p.character == nil {
		return "", session.ErrNoActiveSession
	}
	die, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(args[0]), "d"))
	if err != nil {
		return "", fmt.Errorf("invalid hit die %q", args[0])
	}
	gain, err := p.roller.HitPoints(p.character.Level+1, die, p.character.Modifier("constitution"))
	if err != nil {
		return "", err
	}
	c, err := p.ctl.LevelUp(gain)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Reached level %d (+%d HP, proficiency %+d). %s", c.Level, gain, c.ProficiencyBonus, hpText(c)), nil
}

func (p playCommands) objective(args []string) (string, error) {
	if len(args) != 2 {
		return "", errors.New("usage: /objective <mission #> <objective #>")
	}
	title, err := p.missionTitle(args[0])
	if err != nil {
		return "", err
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return "", fmt.Errorf("invalid objective number %q", args[1])
	}
	mi, err := p.ctl.CompleteObjective(title, n)
	if err != nil {
		return "", err
	}
	text := fmt.Sprintf("%s: %.0f%% complete.", mi.Name(), mi.CompletionPercentage())
	if mi.Status == campaign.MissionCompleted {
		text += " Mission complete!"
	}
	return text, nil
}

func (p playCommands) note(args []string) (string, error) {
	if len(args) < 2 {
		return "", errors.New("usage: /note <mission #> <text>")
	}
	title, err := p.missionTitle(args[0])
	if err != nil {
		return "", err
	}
	mi, err := p.ctl.AddMissionNote(title, strings.Join(args[1:], " "))
	if err != nil {
		return "", err
	}
	return "Noted on " + mi.Name() + ".", nil
}

// missionTitle resolves a 1-based number from /missions to a title.
func (p playCommands) missionTitle(arg string) (string, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return "", fmt.Errorf("invalid mission number %q", arg)
	}
	missions, err := p.ctl.Missions()
	if err != nil {
		return "", err
	}
	if n < 1 || n > len(missions) {
		return "", fmt.Errorf("no mission %d; see /missions", n)
	}
	return missions[n-1].Name(), nil
}

// attack handles /attack <bonus> <ac> [damage dice] [adv|dis]. Damage is
// rolled on a hit, doubling the dice on a critical.
func (p playCommands) attack(args []string) (string, error) {
	mode := dice.Normal
	if n := len(args); n > 0 {
		if m, ok := dice.ParseMode(args[n-1]); ok {
			mode = m
			args = args[:n-1]
		}
	}
	if len(args) < 2 || len(args) > 3 {
		return "", errors.New("usage: /attack <bonus> <ac> [damage dice] [adv|dis]")
	}
	bonus, err := strconv.Atoi(args[0])
	if err != nil {
		return "", fmt.Errorf("invalid attack bonus %q", args[0])
	}
	ac, err := strconv.Atoi(args[1])
	if err != nil {
		return "", fmt.Errorf("invalid armor class %q", args[1])
	}
	check, err := p.roller.Attack(bonus, ac, mode)
	if err != nil {
		return "", err
	}
	verdict := "MISS"
	if check.Success {
		verdict = "HIT"
	}
	text := fmt.Sprintf("Attack %s vs AC %d: %s", dice.Format(check.Roll), ac, verdict)
	if check.Success && len(args) == 3 {
		dmg, err := p.roller.Damage(args[2], check.Roll.Critical)
		if err != nil {
			return "", err
		}
		text += fmt.Sprintf("\nDamage %s = %d", dice.Format(dmg), dmg.Applied())
	}
	return text, nil
}

// savingThrow handles /savethrow <ability> [dc] [adv|dis].
func (p playCommands) savingThrow(args []string) (string, error) {
	if p.character == nil {
		return "", session.ErrNoActiveSession
	}
	mode := dice.Normal
	if n := len(args); n > 1 {
		if m, ok := dice.ParseMode(args[n-1]); ok {
			mode = m
			args = args[:n-1]
		}
	}
	dc := p.defaultDC
	if len(args) == 2 {
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return "", fmt.Errorf("invalid difficulty class %q", args[1])
		}
		dc = v
		args = args[:1]
	}
	if len(args) != 1 {
		return "", errors.New("usage: /savethrow <ability> [dc] [adv|dis]")
	}
	if _, ok := p.character.Stats.Score(args[0]); !ok {
		return "", fmt.Errorf("unknown ability %q", args[0])
	}
	mod := p.character.Modifier(args[0])
	check, err := p.roller.SavingThrow(mod, dc, mode)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s save (%+d): %s", args[0], mod, dice.FormatCheck(check)), nil
}

// encounter handles /encounter [chance]. Without a chance an entry is
// always drawn.
func (p playCommands) encounter(args []string) (string, error) {
	chance := 100
	if len(args) > 0 {
		v, err := strconv.Atoi(strings.TrimSuffix(args[0], "%"))
		if err != nil || v < 0 || v > 100 {
			return "", fmt.Errorf("chance must be a percentage from 0 to 100, got %q", args[0])
		}
		chance = v
	}
	table := p.ctl.EncounterTable()
	if len(table) == 0 {
		return "", errors.New("no encounter table found; add an Encounters list to the oracle tables file")
	}
	e := p.roller.RandomEncounter(chance, table)
	if !e.Occurs {
		return fmt.Sprintf("Encounter check: %d vs %d%%. All quiet.", e.Roll, chance), nil
	}
	return fmt.Sprintf("Encounter check: %d vs %d%%. %s", e.Roll, chance, e.Outcome), nil
}

func missionsText(missions []*campaign.Mission) string {
	if len(missions) == 0 {
		return "No missions.\n"
	}
	var sb strings.Builder
	for i, mi := range missions {
		sb.WriteString(fmt.Sprintf("%d. %s [%s] %.0f%%\n", i+1, mi.Name(), mi.Status, mi.CompletionPercentage()))
		for j, o := range mi.Objectives {
			box := "[ ]"
			if containsFold(mi.CompletedObjectives, o) {
				box = "[x]"
			}
			sb.WriteString(fmt.Sprintf("   %d %s %s\n", j+1, box, o))
		}
		if n := len(mi.ProgressNotes); n > 0 {
			sb.WriteString("   Latest note: " + mi.ProgressNotes[n-1].Note + "\n")
		}
	}
	return sb.String()
}

// nameAndDelta splits "<name words> <+N|-N>".
func nameAndDelta(args []string, usage string) (string, int, error) {
	if len(args) < 2 {
		return "", 0, errors.New("usage: " + usage)
	}
	delta, err := strconv.Atoi(args[len(args)-1])
	if err != nil {
		return "", 0, errors.New("usage: " + usage)
	}
	return strings.Join(args[:len(args)-1], " "), delta, nil
}

func hpText(c *actor.Character) string {
	s := fmt.Sprintf("HP %d/%d", c.HitPoints, c.MaxHitPoints)
	if c.TemporaryHP > 0 {
		s += fmt.Sprintf(" (+%d temp)", c.TemporaryHP)
	}
	return s
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
