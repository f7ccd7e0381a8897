package actor

import (
	"fmt"
	"maps"
	"strings"

	"github.com/jwebster45206/d20"
)

// Stats5e represents the six core ability scores
type Stats5e struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// DefaultStats returns a flat array of 10s.
func DefaultStats() Stats5e {
	return Stats5e{10, 10, 10, 10, 10, 10}
}

// ToAttributes converts Stats5e to a map for d20.Actor compatibility
func (s *Stats5e) ToAttributes() map[string]int {
	return map[string]int{
		"strength":     s.Strength,
		"dexterity":    s.Dexterity,
		"constitution": s.Constitution,
		"intelligence": s.Intelligence,
		"wisdom":       s.Wisdom,
		"charisma":     s.Charisma,
	}
}

// Score returns the named ability score. Three-letter abbreviations are accepted.
func (s *Stats5e) Score(ability string) (int, bool) {
	switch normalizeKey(ability) {
	case "strength", "str":
		return s.Strength, true
	case "dexterity", "dex":
		return s.Dexterity, true
	case "constitution", "con":
		return s.Constitution, true
	case "intelligence", "int":
		return s.Intelligence, true
	case "wisdom", "wis":
		return s.Wisdom, true
	case "charisma", "cha":
		return s.Charisma, true
	}
	return 0, false
}

// Set assigns the named ability score and reports whether the name was recognized.
func (s *Stats5e) Set(ability string, score int) bool {
	switch normalizeKey(ability) {
	case "strength", "str":
		s.Strength = score
	case "dexterity", "dex":
		s.Dexterity = score
	case "constitution", "con":
		s.Constitution = score
	case "intelligence", "int":
		s.Intelligence = score
	case "wisdom", "wis":
		s.Wisdom = score
	case "charisma", "cha":
		s.Charisma = score
	default:
		return false
	}
	return true
}

// AbilityModifier returns floor((score-10)/2).
func AbilityModifier(score int) int {
	d := score - 10
	if d < 0 {
		return (d - 1) / 2
	}
	return d / 2
}

// skillAbilities maps each standard skill to its governing ability.
var skillAbilities = map[string]string{
	"acrobatics":      "dexterity",
	"animal_handling": "wisdom",
	"arcana":          "intelligence",
	"athletics":       "strength",
	"deception":       "charisma",
	"history":         "intelligence",
	"insight":         "wisdom",
	"intimidation":    "charisma",
	"investigation":   "intelligence",
	"medicine":        "wisdom",
	"nature":          "intelligence",
	"perception":      "wisdom",
	"performance":     "charisma",
	"persuasion":      "charisma",
	"religion":        "intelligence",
	"sleight_of_hand": "dexterity",
	"stealth":         "dexterity",
	"survival":        "wisdom",
}

// Character is the player character record carried by a session.
type Character struct {
	Name             string         `json:"name"`
	Race             string         `json:"race,omitempty"`
	Class            string         `json:"class,omitempty"`
	Background       string         `json:"background,omitempty"`
	Level            int            `json:"level"`
	Stats            Stats5e        `json:"stats"`
	HitPoints        int            `json:"hit_points"`
	MaxHitPoints     int            `json:"max_hit_points"`
	TemporaryHP      int            `json:"temporary_hp,omitempty"`
	ArmorClass       int            `json:"armor_class"`
	Speed            int            `json:"speed,omitempty"`
	ProficiencyBonus int            `json:"proficiency_bonus,omitempty"`
	Skills           map[string]int `json:"skills,omitempty"` // skill name -> total modifier
	Inventory        []string       `json:"inventory,omitempty"`
	Wealth           map[string]int `json:"wealth,omitempty"` // coin type -> amount
	CurrentLocation  string         `json:"current_location,omitempty"`
	Conditions       []string       `json:"conditions,omitempty"`
}

// NewCharacter returns a level 1 character with 10/10 HP and AC 10.
func NewCharacter(name string) *Character {
	if name == "" {
		name = "Adventurer"
	}
	return &Character{
		Name:             name,
		Level:            1,
		Stats:            DefaultStats(),
		HitPoints:        10,
		MaxHitPoints:     10,
		ArmorClass:       10,
		Speed:            30,
		ProficiencyBonus: ProficiencyForLevel(1),
		Skills:           map[string]int{},
	}
}

// ProficiencyForLevel returns the proficiency bonus for a character level.
func ProficiencyForLevel(level int) int {
	if level < 1 {
		level = 1
	}
	return 2 + (level-1)/4
}

// Modifier returns the ability modifier for the named ability, or 0 if unknown.
func (c *Character) Modifier(ability string) int {
	score, ok := c.Stats.Score(ability)
	if !ok {
		return 0
	}
	return AbilityModifier(score)
}

// Actor builds a d20.Actor from the character's current state.
func (c *Character) Actor() (*d20.Actor, error) {
	maxHP := c.MaxHitPoints
	if maxHP <= 0 {
		maxHP = 1
	}

	allAttrs := c.Stats.ToAttributes()
	maps.Copy(allAttrs, c.Skills)

	actor, err := d20.NewActor(normalizeKey(c.Name)).
		WithHP(maxHP).
		WithAC(c.ArmorClass).
		WithAttributes(allAttrs).
		WithCombatModifiers(map[string]int{"proficiency": c.ProficiencyBonus}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}

	if c.HitPoints != maxHP && c.HitPoints > 0 {
		if err := actor.SetHP(c.HitPoints); err != nil {
			return nil, fmt.Errorf("failed to set HP: %w", err)
		}
	}
	return actor, nil
}

// SkillModifier resolves the modifier for a skill or ability check.
// Listed skills use their sheet value; ability names and unlisted skills fall
// back to the governing ability modifier.
func (c *Character) SkillModifier(skill string) int {
	key := canonicalAbility(normalizeKey(skill))
	if ability, ok := skillAbilities[key]; ok {
		if _, listed := c.Skills[key]; !listed {
			key = ability
		}
	}
	_, isAbility := c.Stats.Score(key)

	actor, err := c.Actor()
	if err != nil {
		if v, ok := c.Skills[key]; ok {
			return v
		}
		return c.Modifier(key)
	}
	v, ok := actor.Attribute(key)
	if !ok {
		return 0
	}
	if isAbility {
		return AbilityModifier(v)
	}
	return v
}

// TakeDamage applies damage, consuming temporary HP first. HP never drops below 0.
func (c *Character) TakeDamage(amount int) {
	if amount <= 0 {
		return
	}
	absorbed := min(c.TemporaryHP, amount)
	c.TemporaryHP -= absorbed
	c.HitPoints = max(0, c.HitPoints-(amount-absorbed))
}

// Heal restores HP up to the maximum.
func (c *Character) Heal(amount int) {
	if amount <= 0 {
		return
	}
	c.HitPoints = min(c.MaxHitPoints, c.HitPoints+amount)
}

// AddTempHP grants temporary HP. Temporary HP does not stack; the larger value wins.
func (c *Character) AddTempHP(amount int) {
	c.TemporaryHP = max(c.TemporaryHP, amount)
}

// MaxLevel is the highest character level.
const MaxLevel = 20

// LevelUp advances one level, adding hpGain to current and maximum HP.
func (c *Character) LevelUp(hpGain int) error {
	if c.Level >= MaxLevel {
		return fmt.Errorf("already at level %d", MaxLevel)
	}
	if hpGain < 1 {
		return fmt.Errorf("hit point gain must be at least 1, got %d", hpGain)
	}
	c.Level++
	c.ProficiencyBonus = ProficiencyForLevel(c.Level)
	c.MaxHitPoints += hpGain
	c.HitPoints += hpGain
	return nil
}

// IsDown reports whether the character has been reduced to 0 HP.
func (c *Character) IsDown() bool {
	return c.HitPoints == 0
}

// Validate checks the HP invariant.
func (c *Character) Validate() error {
	if c.MaxHitPoints < 0 {
		return fmt.Errorf("max hit points cannot be negative")
	}
	if c.HitPoints < 0 || c.HitPoints > c.MaxHitPoints {
		return fmt.Errorf("hit points %d out of range 0..%d", c.HitPoints, c.MaxHitPoints)
	}
	return nil
}

// Summary renders the one-line status used in prompts and the console.
//
// Example output:
// Level 3 | HP 18/24 | AC 15
func (c *Character) Summary() string {
	if c == nil {
		return ""
	}
	s := fmt.Sprintf("Level %d | HP %d/%d | AC %d", c.Level, c.HitPoints, c.MaxHitPoints, c.ArmorClass)
	if c.TemporaryHP > 0 {
		s += fmt.Sprintf(" | Temp HP %d", c.TemporaryHP)
	}
	return s
}

// Clone returns a deep copy.
func (c *Character) Clone() *Character {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Skills = maps.Clone(c.Skills)
	cp.Wealth = maps.Clone(c.Wealth)
	cp.Inventory = append([]string(nil), c.Inventory...)
	cp.Conditions = append([]string(nil), c.Conditions...)
	return &cp
}

var abilityAbbreviations = map[string]string{
	"str": "strength",
	"dex": "dexterity",
	"con": "constitution",
	"int": "intelligence",
	"wis": "wisdom",
	"cha": "charisma",
}

func canonicalAbility(key string) string {
	if full, ok := abilityAbbreviations[key]; ok {
		return full
	}
	return key
}

// NormalizeSkill converts "Sleight of Hand" to "sleight_of_hand".
func NormalizeSkill(s string) string {
	return normalizeKey(s)
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
