package actor

import (
	"testing"
)

func TestStats5e_ToAttributes(t *testing.T) {
	stats := Stats5e{
		Strength:     16,
		Dexterity:    14,
		Constitution: 15,
		Intelligence: 10,
		Wisdom:       12,
		Charisma:     8,
	}

	attrs := stats.ToAttributes()

	tests := []struct {
		key      string
		expected int
	}{
		{"strength", 16},
		{"dexterity", 14},
		{"constitution", 15},
		{"intelligence", 10},
		{"wisdom", 12},
		{"charisma", 8},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := attrs[tt.key]; got != tt.expected {
				t.Errorf("ToAttributes()[%q] = %d, want %d", tt.key, got, tt.expected)
			}
		})
	}
}

func TestAbilityModifier(t *testing.T) {
	tests := []struct {
		score int
		want  int
	}{
		{1, -5},
		{3, -4},
		{8, -1},
		{9, -1},
		{10, 0},
		{11, 0},
		{12, 1},
		{16, 3},
		{20, 5},
		{30, 10},
		{0, -5},
		{-1, -6},
	}

	for _, tt := range tests {
		if got := AbilityModifier(tt.score); got != tt.want {
			t.Errorf("AbilityModifier(%d) = %d, want %d", tt.score, got, tt.want)
		}
	}
}

func TestNewCharacter_Defaults(t *testing.T) {
	c := NewCharacter("")
	if c.Name != "Adventurer" {
		t.Errorf("Name = %q, want %q", c.Name, "Adventurer")
	}
	if c.Level != 1 || c.HitPoints != 10 || c.MaxHitPoints != 10 || c.ArmorClass != 10 {
		t.Errorf("defaults = level %d hp %d/%d ac %d, want level 1 hp 10/10 ac 10",
			c.Level, c.HitPoints, c.MaxHitPoints, c.ArmorClass)
	}
	if c.ProficiencyBonus != 2 {
		t.Errorf("ProficiencyBonus = %d, want 2", c.ProficiencyBonus)
	}
}

func TestCharacter_TakeDamage(t *testing.T) {
	tests := []struct {
		name     string
		hp       int
		temp     int
		damage   int
		wantHP   int
		wantTemp int
	}{
		{"temp absorbs first", 20, 5, 8, 17, 0},
		{"temp absorbs all", 20, 10, 4, 20, 6},
		{"no temp", 20, 0, 7, 13, 0},
		{"clamps at zero", 5, 0, 50, 0, 0},
		{"zero damage", 20, 3, 0, 20, 3},
		{"negative damage ignored", 20, 0, -5, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCharacter("Vex")
			c.MaxHitPoints = 20
			c.HitPoints = tt.hp
			c.TemporaryHP = tt.temp

			c.TakeDamage(tt.damage)

			if c.HitPoints != tt.wantHP {
				t.Errorf("HitPoints = %d, want %d", c.HitPoints, tt.wantHP)
			}
			if c.TemporaryHP != tt.wantTemp {
				t.Errorf("TemporaryHP = %d, want %d", c.TemporaryHP, tt.wantTemp)
			}
			if err := c.Validate(); err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestCharacter_HealAndTempHP(t *testing.T) {
	c := NewCharacter("Vex")
	c.MaxHitPoints = 20
	c.HitPoints = 5

	c.Heal(100)
	if c.HitPoints != 20 {
		t.Errorf("Heal over max: HitPoints = %d, want 20", c.HitPoints)
	}

	c.AddTempHP(5)
	c.AddTempHP(3)
	if c.TemporaryHP != 5 {
		t.Errorf("TemporaryHP after smaller grant = %d, want 5", c.TemporaryHP)
	}
	c.AddTempHP(8)
	if c.TemporaryHP != 8 {
		t.Errorf("TemporaryHP after larger grant = %d, want 8", c.TemporaryHP)
	}
}

func TestCharacter_LevelUp(t *testing.T) {
	c := NewCharacter("Vex")
	c.Level = 4
	c.MaxHitPoints = 30
	c.HitPoints = 12

	if err := c.LevelUp(7); err != nil {
		t.Fatalf("LevelUp() error = %v", err)
	}
	if c.Level != 5 || c.ProficiencyBonus != 3 {
		t.Errorf("level %d proficiency %d, want 5 and +3", c.Level, c.ProficiencyBonus)
	}
	if c.HitPoints != 19 || c.MaxHitPoints != 37 {
		t.Errorf("HP = %d/%d, want 19/37", c.HitPoints, c.MaxHitPoints)
	}

	if err := c.LevelUp(0); err == nil {
		t.Error("LevelUp(0) error = nil")
	}
	c.Level = MaxLevel
	if err := c.LevelUp(5); err == nil {
		t.Error("LevelUp past max level error = nil")
	}
}

func TestCharacter_IsDown(t *testing.T) {
	c := NewCharacter("Vex")
	c.AddTempHP(4)
	c.TakeDamage(14)
	if !c.IsDown() || c.TemporaryHP != 0 {
		t.Errorf("after 14 damage: HP %d temp %d down %v", c.HitPoints, c.TemporaryHP, c.IsDown())
	}
	c.Heal(1)
	if c.IsDown() {
		t.Error("IsDown() = true after healing")
	}
}

func TestCharacter_SkillModifier(t *testing.T) {
	c := NewCharacter("Vex")
	c.Stats = Stats5e{Strength: 16, Dexterity: 14, Constitution: 12, Intelligence: 8, Wisdom: 13, Charisma: 10}
	c.Skills = map[string]int{"athletics": 5, "sleight_of_hand": 4}

	tests := []struct {
		skill string
		want  int
	}{
		{"Athletics", 5},
		{"Sleight of Hand", 4},
		{"stealth", 2},       // unlisted, falls back to dexterity
		{"investigation", -1}, // unlisted, falls back to intelligence
		{"strength", 3},
		{"WIS", 1},
		{"underwater basket weaving", 0},
	}

	for _, tt := range tests {
		t.Run(tt.skill, func(t *testing.T) {
			if got := c.SkillModifier(tt.skill); got != tt.want {
				t.Errorf("SkillModifier(%q) = %d, want %d", tt.skill, got, tt.want)
			}
		})
	}
}

func TestCharacter_Actor(t *testing.T) {
	c := NewCharacter("Vex")
	c.MaxHitPoints = 24
	c.HitPoints = 18
	c.ArmorClass = 15

	a, err := c.Actor()
	if err != nil {
		t.Fatalf("Actor() error = %v", err)
	}
	if a.HP() != 18 {
		t.Errorf("actor HP = %d, want 18", a.HP())
	}
	if a.MaxHP() != 24 {
		t.Errorf("actor MaxHP = %d, want 24", a.MaxHP())
	}
	if a.AC() != 15 {
		t.Errorf("actor AC = %d, want 15", a.AC())
	}
}

func TestCharacter_Summary(t *testing.T) {
	c := NewCharacter("Vex")
	c.Level = 3
	c.MaxHitPoints = 24
	c.HitPoints = 18
	c.ArmorClass = 15

	if got, want := c.Summary(), "Level 3 | HP 18/24 | AC 15"; got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}

	c.TemporaryHP = 4
	if got, want := c.Summary(), "Level 3 | HP 18/24 | AC 15 | Temp HP 4"; got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

func TestCharacter_Clone(t *testing.T) {
	c := NewCharacter("Vex")
	c.Inventory = []string{"rope"}
	c.Skills["stealth"] = 4

	cp := c.Clone()
	cp.Inventory[0] = "torch"
	cp.Skills["stealth"] = 9

	if c.Inventory[0] != "rope" || c.Skills["stealth"] != 4 {
		t.Error("Clone() shares state with original")
	}
}
