// Package dmcontext projects loaded campaign data into the bounded payload
// sent with each model call.
package dmcontext

import (
	"cmp"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/jwebster45206/solo-dm/pkg/actor"
	"github.com/jwebster45206/solo-dm/pkg/campaign"
)

// Scenario selects the prompt template and payload shape for a model call.
type Scenario string

const (
	ScenarioGeneral Scenario = "general"
	ScenarioCombat  Scenario = "combat"
	ScenarioSocial  Scenario = "social"
)

const (
	MaxNPCs            = 5
	MaxMissions        = 3
	MaxNPCStatus       = 200
	MaxCapabilities    = 3
	MaxCombatInventory = 5
	MaxSceneLength     = 1000
	truncationEllipsis = "..."
)

// Source is the read side of the campaign loader.
type Source interface {
	CharacterStats() *actor.Character
	NPCs() []*actor.NPC
	Missions() []*campaign.Mission
	QuickReference() campaign.QuickReference
}

// Payload is the structured context for one model call. Everything in it is
// a copy; mutating it never touches the loader's cache.
type Payload struct {
	ScenarioType   Scenario                `json:"scenario_type"`
	Character      *actor.Character        `json:"character,omitempty"`
	QuickReference campaign.QuickReference `json:"quick_reference,omitempty"`
	Missions       []*campaign.Mission     `json:"missions,omitempty"`
	NPCs           []*actor.NPC            `json:"recent_npcs,omitempty"`
	Scene          string                  `json:"current_scene,omitempty"`
	Location       string                  `json:"current_location,omitempty"`

	// combat
	CombatFocus           bool `json:"combat_focus,omitempty"`
	EnvironmentalEmphasis bool `json:"environmental_emphasis,omitempty"`

	// social
	SocialFocus        bool `json:"social_focus,omitempty"`
	NPCKnowledgeLimits bool `json:"npc_knowledge_limits,omitempty"`
}

// WithScene attaches the current scene text and location.
func (p *Payload) WithScene(scene, location string) *Payload {
	p.Scene = Truncate(scene, MaxSceneLength)
	p.Location = location
	return p
}

// Builder assembles payloads from a Source.
type Builder struct {
	src Source
}

// New creates a Builder over src.
func New(src Source) *Builder {
	return &Builder{src: src}
}

// Build returns the payload for scenario. When npcNames is non-empty the
// named NPCs are included in directory order; otherwise the highest-trust
// NPCs are chosen, ties keeping directory order.
func (b *Builder) Build(scenario Scenario, npcNames []string) *Payload {
	p := &Payload{ScenarioType: scenario}
	if p.ScenarioType == "" {
		p.ScenarioType = ScenarioGeneral
	}

	if c := b.src.CharacterStats(); c != nil {
		p.Character = c.Clone()
		if p.ScenarioType == ScenarioCombat && len(p.Character.Inventory) > MaxCombatInventory {
			p.Character.Inventory = p.Character.Inventory[:MaxCombatInventory]
		}
	}

	if qr := b.src.QuickReference(); len(qr) > 0 {
		p.QuickReference = maps.Clone(qr)
	}

	p.Missions = activeMissions(b.src.Missions())
	p.NPCs = relevantNPCs(b.src.NPCs(), npcNames)

	switch p.ScenarioType {
	case ScenarioCombat:
		p.CombatFocus = true
		p.EnvironmentalEmphasis = true
	case ScenarioSocial:
		p.SocialFocus = true
		p.NPCKnowledgeLimits = true
	}
	return p
}

func activeMissions(all []*campaign.Mission) []*campaign.Mission {
	var active []*campaign.Mission
	for _, m := range all {
		if m != nil && m.IsActive() {
			active = append(active, m)
		}
	}
	slices.SortStableFunc(active, func(a, b *campaign.Mission) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	if len(active) > MaxMissions {
		active = active[:MaxMissions]
	}

	out := make([]*campaign.Mission, len(active))
	for i, m := range active {
		cp := *m
		cp.Objectives = slices.Clone(m.Objectives)
		cp.CompletedObjectives = slices.Clone(m.CompletedObjectives)
		cp.SuccessMetrics = slices.Clone(m.SuccessMetrics)
		cp.ProgressNotes = slices.Clone(m.ProgressNotes)
		out[i] = &cp
	}
	return out
}

func relevantNPCs(all []*actor.NPC, names []string) []*actor.NPC {
	var picked []*actor.NPC
	if len(names) > 0 {
		wanted := make(map[string]bool, len(names))
		for _, n := range names {
			wanted[strings.ToLower(strings.TrimSpace(n))] = true
		}
		for _, npc := range all {
			if npc != nil && wanted[strings.ToLower(npc.Name)] {
				picked = append(picked, npc)
			}
		}
	}
	if len(picked) == 0 {
		for _, npc := range all {
			if npc != nil {
				picked = append(picked, npc)
			}
		}
		slices.SortStableFunc(picked, func(a, b *actor.NPC) int {
			return cmp.Compare(b.TrustLevel, a.TrustLevel)
		})
	}
	if len(picked) > MaxNPCs {
		picked = picked[:MaxNPCs]
	}

	out := make([]*actor.NPC, len(picked))
	for i, npc := range picked {
		cp := *npc
		cp.CurrentStatus = Truncate(npc.CurrentStatus, MaxNPCStatus)
		cp.Capabilities = slices.Clone(npc.Capabilities)
		if len(cp.Capabilities) > MaxCapabilities {
			cp.Capabilities = cp.Capabilities[:MaxCapabilities]
		}
		out[i] = &cp
	}
	return out
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= len(truncationEllipsis) {
		return string(r[:n])
	}
	return string(r[:n-len(truncationEllipsis)]) + truncationEllipsis
}

var (
	combatWords = regexp.MustCompile(`(?i)\b(?:attack|fight|cast|spell|weapon|combat)(?:s|es|ed|ing)?\b`)
	socialWords = regexp.MustCompile(`(?i)\b(?:talk\w*|speak\w*|negotiat\w*|persuad\w*|intimidat\w*|conversation\w*)\b`)
)

// DetectScenario classifies free-text player input. Combat wins when both
// kinds of keyword appear.
func DetectScenario(input string) Scenario {
	switch {
	case combatWords.MatchString(input):
		return ScenarioCombat
	case socialWords.MatchString(input):
		return ScenarioSocial
	}
	return ScenarioGeneral
}
