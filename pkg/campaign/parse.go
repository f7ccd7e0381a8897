package campaign

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/jwebster45206/solo-dm/pkg/actor"
	"github.com/jwebster45206/solo-dm/pkg/mdparse"
)

var (
	ErrMissingLevel = errors.New("character sheet has no level")
	ErrEmptyContent = errors.New("file is empty")
)

var (
	npcHeading     = regexp.MustCompile(`(?m)^### \*\*(.*?)\*\* ((?:⭐\x{FE0F}?)+)(?:\s*\[([^\]]+)\])?`)
	missionHeading = regexp.MustCompile(`(?m)^### \*\*(.*?)\*\* \[([^\]]+)\]`)
	levelPattern   = regexp.MustCompile(`Level(?::\*\*|\*\*:|:)?\s*(\d+)`)
	skillLine      = regexp.MustCompile(`^(.+?)\s+([+-]\d+)\b`)
)

// priorityWindow is how far past a mission heading "PRIORITY 1" may appear.
const priorityWindow = 200

// Parse runs the role-specific parser for a campaign file key.
// Reference files return a nil payload and no error.
func Parse(fileType FileType, content string) (any, error) {
	switch fileType {
	case FileTypeNPCDirectory:
		return ParseNPCDirectory(content), nil
	case FileTypeCharacterSheet:
		return ParseCharacterSheet(content)
	case FileTypeMissions:
		return ParseMissions(content), nil
	case FileTypeQuickReference:
		return ParseQuickReference(content), nil
	}
	return nil, nil
}

// ParseNPCDirectory extracts NPC blocks of the form
//
//	### **Name** ⭐⭐⭐ [TAG]
//	**Role:** ...
//
// Records are returned in document order. Names are not de-duplicated.
func ParseNPCDirectory(content string) []*actor.NPC {
	var npcs []*actor.NPC
	for _, sec := range mdparse.Sections(content, npcHeading, 3) {
		npc := actor.NewNPC(sec.Group(0), strings.Count(sec.Group(1), "⭐"))
		npc.Notes = sec.Group(2)
		npc.Role = mdparse.FieldOr(sec.Body, "Role", "")
		npc.Relationship = mdparse.FieldOr(sec.Body, "Relationship", "")
		npc.CurrentStatus = mdparse.FieldOr(sec.Body, "Current Status", "")
		npc.IntelligenceValue = mdparse.FieldOr(sec.Body, "Intelligence Value", "")
		npc.Location, _ = mdparse.FirstField(sec.Body, "Location", "Base")
		if caps, ok := mdparse.Field(sec.Body, "Capabilities"); ok {
			npc.Capabilities = mdparse.SplitList(caps)
		}
		npcs = append(npcs, npc)
	}
	return npcs
}

// ParseMissions extracts "### **Title** [STATUS]" blocks.
func ParseMissions(content string) []*Mission {
	var missions []*Mission
	for _, sec := range mdparse.Sections(content, missionHeading, 3) {
		tag := sec.Group(1)
		m := &Mission{
			Title:     sec.Group(0),
			StatusTag: tag,
			Status:    ParseMissionStatus(tag),
			Priority:  2,
			Deadline:  mdparse.FieldOr(sec.Body, "Deadline", ""),
		}
		if mdparse.Near(content, sec.Start, priorityWindow, "PRIORITY 1") {
			m.Priority = 1
		}

		for _, box := range mdparse.Checkboxes(sec.Body) {
			m.Objectives = appendUnique(m.Objectives, box.Text)
			if box.Checked {
				m.CompletedObjectives = appendUnique(m.CompletedObjectives, box.Text)
			}
		}
		for _, obj := range mdparse.ListAfter(sec.Body, "Objectives") {
			m.Objectives = appendUnique(m.Objectives, obj)
		}
		m.SuccessMetrics = mdparse.ListAfter(sec.Body, "Success Metrics")

		missions = append(missions, m)
	}
	return missions
}

// Stats assumed for a character sheet that omits them.
const (
	DefaultSheetHitPoints  = 27
	DefaultSheetArmorClass = 13
)

// ParseCharacterSheet extracts the player character. A sheet without a
// "Level N" marker is rejected with ErrMissingLevel.
func ParseCharacterSheet(content string) (*actor.Character, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	lm := levelPattern.FindStringSubmatch(content)
	if lm == nil {
		return nil, ErrMissingLevel
	}

	c := actor.NewCharacter(mdparse.FieldOr(content, "Name", ""))
	if level, ok := mdparse.Int(lm[1]); ok {
		c.Level = level
		c.ProficiencyBonus = actor.ProficiencyForLevel(level)
	}
	c.Race = mdparse.FieldOr(content, "Race", "")
	c.Class = mdparse.FieldOr(content, "Class", "")
	c.Background = mdparse.FieldOr(content, "Background", "")
	c.CurrentLocation = mdparse.FieldOr(content, "Location", "")
	c.MaxHitPoints, c.HitPoints = DefaultSheetHitPoints, DefaultSheetHitPoints
	c.ArmorClass = DefaultSheetArmorClass

	if hp, ok := mdparse.FirstField(content, "HP", "Hit Points"); ok {
		if cur, maxHP, ok := mdparse.Fraction(hp); ok {
			c.MaxHitPoints = maxHP
			c.HitPoints = min(cur, maxHP)
		} else if n, ok := mdparse.Int(hp); ok {
			c.MaxHitPoints, c.HitPoints = n, n
		}
	}
	if ac, ok := mdparse.FirstField(content, "AC", "Armor Class"); ok {
		if n, ok := mdparse.Int(ac); ok {
			c.ArmorClass = n
		}
	}
	if speed, ok := mdparse.Field(content, "Speed"); ok {
		if n, ok := mdparse.Int(speed); ok {
			c.Speed = n
		}
	}
	if pb, ok := mdparse.Field(content, "Proficiency Bonus"); ok {
		if n, ok := mdparse.Int(pb); ok {
			c.ProficiencyBonus = n
		}
	}

	for _, ability := range []string{"Strength", "Dexterity", "Constitution", "Intelligence", "Wisdom", "Charisma"} {
		if v, ok := mdparse.Field(content, ability); ok {
			if n, ok := mdparse.Int(v); ok {
				c.Stats.Set(ability, n)
			}
		}
	}

	if body, ok := mdparse.Heading(content, "Skills"); ok {
		for _, item := range mdparse.ListItems(body) {
			if m := skillLine.FindStringSubmatch(item); m != nil {
				n, _ := mdparse.Int(m[2])
				c.Skills[actor.NormalizeSkill(m[1])] = n
			}
		}
	}
	if body, ok := mdparse.Heading(content, "Equipment"); ok {
		c.Inventory = mdparse.ListItems(body)
	} else if body, ok := mdparse.Heading(content, "Inventory"); ok {
		c.Inventory = mdparse.ListItems(body)
	}
	if gold, ok := mdparse.Field(content, "Gold"); ok {
		if n, ok := mdparse.Int(gold); ok {
			c.Wealth = map[string]int{"gold": n}
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid character sheet: %w", err)
	}
	return c, nil
}

// ParseQuickReference collects every "**Key:** value" line. "Level N" is
// exposed as character_level; Time and Location are mirrored to
// current_time and current_location.
func ParseQuickReference(content string) QuickReference {
	q := QuickReference(mdparse.KeyValues(content))
	if m := levelPattern.FindStringSubmatch(content); m != nil {
		q["character_level"] = m[1]
	}
	if v, ok := q["time"]; ok {
		if _, set := q["current_time"]; !set {
			q["current_time"] = v
		}
	}
	if v, ok := q["location"]; ok {
		if _, set := q["current_location"]; !set {
			q["current_location"] = v
		}
	}
	return q
}

func appendUnique(list []string, s string) []string {
	if slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}
