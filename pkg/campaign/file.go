package campaign

import (
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/solo-dm/pkg/actor"
)

// FileType identifies which parser, if any, handles a campaign file.
type FileType string

const (
	FileTypeReference      FileType = "reference"
	FileTypeCharacterSheet FileType = "character_sheet"
	FileTypeNPCDirectory   FileType = "npc_directory"
	FileTypeMissions       FileType = "active_missions"
	FileTypeQuickReference FileType = "quick_reference"
)

// File is one markdown document from the campaign directory.
// Parsed is recomputed whenever Content changes.
type File struct {
	Key          string    `json:"key"`
	Filename     string    `json:"filename"`
	Content      string    `json:"content"`
	Parsed       any       `json:"parsed,omitempty"` // []*actor.NPC, *actor.Character, []*Mission, QuickReference, or nil
	LastModified time.Time `json:"last_modified"`
	FileType     FileType  `json:"file_type"`
}

// QuickReference is the flat key/value mapping from the quick reference file.
type QuickReference map[string]string

// Get returns the value for key or "".
func (q QuickReference) Get(key string) string {
	if q == nil {
		return ""
	}
	return q[key]
}

// NPCs returns the parsed NPC list, if this file holds one.
func (f *File) NPCs() []*actor.NPC {
	if f == nil {
		return nil
	}
	npcs, _ := f.Parsed.([]*actor.NPC)
	return npcs
}

// Character returns the parsed character sheet, if this file holds one.
func (f *File) Character() *actor.Character {
	if f == nil {
		return nil
	}
	c, _ := f.Parsed.(*actor.Character)
	return c
}

// Missions returns the parsed missions, if this file holds them.
func (f *File) Missions() []*Mission {
	if f == nil {
		return nil
	}
	m, _ := f.Parsed.([]*Mission)
	return m
}

// QuickReference returns the parsed quick reference, if this file holds one.
func (f *File) QuickReference() QuickReference {
	if f == nil {
		return nil
	}
	q, _ := f.Parsed.(QuickReference)
	return q
}

// DefaultFileMapping is the fixed set of campaign files, keyed by role.
var DefaultFileMapping = func() map[string]string {
	keys := []string{
		"character_sheet", "active_missions", "npc_directory", "location_directory",
		"faction_tracker", "campaign_timeline", "quick_reference", "session_log",
		"backstory_relationships", "character_progression", "atmospheric_writing",
		"companion_management", "memory_management", "skill_check_system",
		"social_mechanics", "world_progression", "combat_templates",
		"core_dm_instructions", "oracle_tables", "house_rules", "magic_item_catalog",
		"name_generators", "plot_hooks", "world_secrets",
	}
	m := make(map[string]string, len(keys))
	for _, k := range keys {
		m[k] = k + ".md"
	}
	return m
}()

// TypeForKey returns the parser role for a mapping key.
func TypeForKey(key string) FileType {
	switch FileType(key) {
	case FileTypeCharacterSheet, FileTypeNPCDirectory, FileTypeMissions, FileTypeQuickReference:
		return FileType(key)
	}
	return FileTypeReference
}

// Title renders "npc_directory.md" as "Npc Directory".
func Title(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return cases.Title(language.English).String(strings.ReplaceAll(base, "_", " "))
}
