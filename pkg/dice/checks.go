package dice

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Standard difficulty classes.
const (
	DCVeryEasy         = 5
	DCEasy             = 10
	DCMedium           = 15
	DCHard             = 20
	DCVeryHard         = 25
	DCNearlyImpossible = 30
)

var ErrEmptyTable = errors.New("table is empty")

// DifficultyDescription names the band a DC falls into.
func DifficultyDescription(dc int) string {
	switch {
	case dc <= DCVeryEasy:
		return "Very Easy"
	case dc <= DCEasy:
		return "Easy"
	case dc <= DCMedium:
		return "Medium"
	case dc <= DCHard:
		return "Hard"
	case dc <= DCVeryHard:
		return "Very Hard"
	}
	return "Nearly Impossible"
}

// Check is the outcome of a d20 roll against a target number.
type Check struct {
	Roll    Roll `json:"roll"`
	DC      int  `json:"dc"`
	Success bool `json:"success"`
}

// Margin is how far the total landed above (positive) or below the DC.
func (c Check) Margin() int {
	return c.Roll.Total - c.DC
}

// SkillCheck rolls d20+modifier against dc. Success is total >= dc.
func (r *Roller) SkillCheck(modifier, dc int, mode Mode) (Check, error) {
	roll, err := r.Roll(D20(modifier), mode)
	if err != nil {
		return Check{}, err
	}
	return Check{Roll: roll, DC: dc, Success: roll.Total >= dc}, nil
}

// SavingThrow is a skill check by another name.
func (r *Roller) SavingThrow(modifier, dc int, mode Mode) (Check, error) {
	return r.SkillCheck(modifier, dc, mode)
}

// Attack rolls to hit against armor class. A natural 20 always hits and a
// natural 1 always misses.
func (r *Roller) Attack(attackBonus, armorClass int, mode Mode) (Check, error) {
	check, err := r.SkillCheck(attackBonus, armorClass, mode)
	if err != nil {
		return Check{}, err
	}
	switch {
	case check.Roll.Critical:
		check.Success = true
	case check.Roll.Fumble:
		check.Success = false
	}
	return check, nil
}

// Damage rolls a damage expression. On a critical hit the dice are doubled;
// the modifier is not. A negative modifier can push Total below zero; use
// Roll.Applied for the damage actually dealt.
func (r *Roller) Damage(notation string, critical bool) (Roll, error) {
	spec, err := ParseNotation(notation)
	if err != nil {
		return Roll{}, err
	}
	if critical {
		spec.Count = min(spec.Count*2, MaxCount)
	}
	return r.Roll(spec, Normal)
}

// Initiative rolls d20 plus the dexterity modifier.
func (r *Roller) Initiative(dexModifier int) (Roll, error) {
	return r.Roll(D20(dexModifier), Normal)
}

// Percentile rolls 1d100.
func (r *Roller) Percentile() int {
	roll, _ := r.Roll(Spec{Count: 1, Sides: 100}, Normal)
	return roll.Total
}

// AbilityScores rolls six scores, each the best three of 4d6.
func (r *Roller) AbilityScores() []int {
	scores := make([]int, 6)
	for i := range scores {
		roll, _ := r.Roll(Spec{Count: 4, Sides: 6}, Normal)
		faces := slices.Clone(roll.Rolls)
		slices.Sort(faces)
		scores[i] = faces[1] + faces[2] + faces[3]
	}
	return scores
}

// HitPoints returns the hit points gained on reaching level. First level
// takes the full hit die plus the constitution modifier; later levels roll
// the hit die plus the modifier, never gaining less than 1.
func (r *Roller) HitPoints(level, hitDie, conModifier int) (int, error) {
	if level < 1 {
		return 0, fmt.Errorf("level must be at least 1, got %d", level)
	}
	if err := (Spec{Count: 1, Sides: hitDie}).Validate(); err != nil {
		return 0, err
	}
	if level == 1 {
		return hitDie + conModifier, nil
	}
	roll, err := r.Roll(Spec{Count: 1, Sides: hitDie}, Normal)
	if err != nil {
		return 0, err
	}
	return max(1, roll.Total+conModifier), nil
}

// Pick returns a uniformly chosen table entry.
func (r *Roller) Pick(table []string) (string, error) {
	if len(table) == 0 {
		return "", ErrEmptyTable
	}
	return table[r.Intn(len(table))], nil
}

// Encounter is the outcome of a random encounter check.
type Encounter struct {
	Occurs  bool   `json:"occurs"`
	Roll    int    `json:"roll"`
	Outcome string `json:"outcome,omitempty"`
}

// RandomEncounter rolls percentile dice; an encounter occurs when the roll is
// at or under chance, and an outcome is drawn from table.
func (r *Roller) RandomEncounter(chance int, table []string) Encounter {
	e := Encounter{Roll: r.Percentile()}
	if e.Roll > chance {
		return e
	}
	e.Occurs = true
	e.Outcome, _ = r.Pick(table)
	return e
}

// Average is the expected total of a spec.
func Average(spec Spec) float64 {
	return float64(spec.Count)*float64(spec.Sides+1)/2 + float64(spec.Modifier)
}

// Range returns the minimum and maximum possible totals.
func Range(spec Spec) (int, int) {
	return spec.Count + spec.Modifier, spec.Count*spec.Sides + spec.Modifier
}

// Format renders a roll for display.
//
// Example output:
// d20+5 (advantage) [7, 20] → 25 CRITICAL!
func Format(r Roll) string {
	var sb strings.Builder
	sb.WriteString(r.Spec.String())
	if r.Mode != Normal {
		sb.WriteString(" (" + r.Mode.String() + ")")
	}
	faces := make([]string, len(r.Rolls))
	for i, v := range r.Rolls {
		faces[i] = fmt.Sprint(v)
	}
	fmt.Fprintf(&sb, " [%s] → %d", strings.Join(faces, ", "), r.Total)
	switch {
	case r.Critical:
		sb.WriteString(" CRITICAL!")
	case r.Fumble:
		sb.WriteString(" FUMBLE!")
	}
	return sb.String()
}

// FormatCheck renders a check with its verdict.
func FormatCheck(c Check) string {
	verdict := "FAILURE"
	if c.Success {
		verdict = "SUCCESS"
	}
	return fmt.Sprintf("%s vs DC %d (%s): %s", Format(c.Roll), c.DC, DifficultyDescription(c.DC), verdict)
}
