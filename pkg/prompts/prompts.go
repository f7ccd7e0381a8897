package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/solo-dm/pkg/dmcontext"
)

// BaseSystemPrompt is the default Dungeon Master prompt for solo play.
const BaseSystemPrompt = `You are an expert Dungeon Master running a solo D&D 5e campaign for a single player.

### CRITICAL DIRECTIVES:
- NEVER control the player character's actions, thoughts, or decisions.
- Describe the scene, NPC reactions, and the consequences of the player's choices.
- ALWAYS require skill checks for hidden information, NPC motivations, and supernatural detection.
- Keep responses to 2-3 paragraphs. Social scenes should stay short.
- Finish with clear action options for the player.

### Solo play:
- The campaign is optimized for one player character.
- Environmental complexity compensates for the solo action economy.
- Political intrigue and information networks matter as much as combat.

### Response format:
1. Scene description (multi-sensory, concise)
2. NPC reactions (deeper insight requires skill checks)
3. Clear action options (combat, social, environmental, creative)

### Narrator responses
- Do not break the fourth wall. Do not acknowledge that you are an AI.
- Do not invent dice results. When a roll is needed, ask the player to roll and name the skill and DC.

Use the provided context about the character, missions, and NPCs to inform your response.`

// CombatPrompt is appended to the base prompt for combat turns.
const CombatPrompt = `### COMBAT FOCUS:
- Emphasize environmental interactions over monster quantity.
- Provide 2-3 tactical options each turn beyond basic attacks.
- Target 15-25% of daily resources per Medium encounter.
- Use dynamic environmental elements (destructible cover, moving platforms, hazards).`

// SocialPrompt is appended to the base prompt for social turns.
const SocialPrompt = `### SOCIAL FOCUS:
- NPCs only know information they would realistically have access to.
- Surface behavioral cues are automatic; deeper motivations require skill checks.
- Scale information quality to roll success.
- Offer multiple social approaches (intimidation, persuasion, deception, insight).`

// OpeningAction is the player input used to generate a session's first scene.
const OpeningAction = "Begin the session. Set the opening scene for my character based on the current situation, and end with what I can do next."

// UserPostPrompt reminds the model of output constraints after the player's turn.
const UserPostPrompt = `Respond as the Dungeon Master. Stay in the fiction, keep it to 1-3 paragraphs, and never decide what the player character does next.`

// SystemPrompt returns the system prompt for a scenario type.
func SystemPrompt(scenario dmcontext.Scenario) string {
	switch scenario {
	case dmcontext.ScenarioCombat:
		return BaseSystemPrompt + "\n\n" + CombatPrompt
	case dmcontext.ScenarioSocial:
		return BaseSystemPrompt + "\n\n" + SocialPrompt
	}
	return BaseSystemPrompt
}

// RenderUserMessage formats the context payload and the player's action as
// the markdown user turn sent to the model.
func RenderUserMessage(p *dmcontext.Payload, playerInput string) string {
	var sb strings.Builder

	if p != nil {
		if p.QuickReference != nil || p.Location != "" {
			location := p.Location
			if location == "" {
				location = valueOr(p.QuickReference.Get("current_location"), "Unknown")
			}
			sb.WriteString("## Current Situation\n")
			sb.WriteString(fmt.Sprintf("Time: %s\n", valueOr(p.QuickReference.Get("current_time"), "Unknown")))
			sb.WriteString(fmt.Sprintf("Location: %s\n\n", location))
		}

		if p.Scene != "" {
			sb.WriteString("## Current Scene\n")
			sb.WriteString(p.Scene + "\n\n")
		}

		if c := p.Character; c != nil {
			sb.WriteString("## Character Status\n")
			sb.WriteString(fmt.Sprintf("Level %d | HP: %d/%d | AC: %d\n", c.Level, c.HitPoints, c.MaxHitPoints, c.ArmorClass))
			if len(c.Conditions) > 0 {
				sb.WriteString("Conditions: " + strings.Join(c.Conditions, ", ") + "\n")
			}
			if p.CombatFocus && len(c.Inventory) > 0 {
				sb.WriteString("Gear: " + strings.Join(c.Inventory, ", ") + "\n")
			}
			sb.WriteString("\n")
		}

		if len(p.Missions) > 0 {
			sb.WriteString("## Active Missions\n")
			for i, m := range p.Missions {
				if i == dmcontext.MaxMissions {
					break
				}
				sb.WriteString(fmt.Sprintf("- %s [%s]\n", m.Name(), m.Status))
			}
			sb.WriteString("\n")
		}

		if len(p.NPCs) > 0 {
			sb.WriteString("## Key NPCs\n")
			for i, n := range p.NPCs {
				if i == dmcontext.MaxNPCs {
					break
				}
				sb.WriteString(fmt.Sprintf("- %s %s: %s\n", n.Name, n.Stars(), n.Role))
				if p.NPCKnowledgeLimits && n.CurrentStatus != "" {
					sb.WriteString(fmt.Sprintf("  Status: %s\n", n.CurrentStatus))
				}
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("## Player Action\n")
	sb.WriteString(playerInput)
	return sb.String()
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
