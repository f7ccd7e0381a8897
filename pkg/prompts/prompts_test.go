package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwebster45206/solo-dm/pkg/actor"
	"github.com/jwebster45206/solo-dm/pkg/campaign"
	"github.com/jwebster45206/solo-dm/pkg/dmcontext"
)

func TestSystemPrompt(t *testing.T) {
	tests := []struct {
		scenario dmcontext.Scenario
		contains string
		excludes string
	}{
		{dmcontext.ScenarioGeneral, "CRITICAL DIRECTIVES", "FOCUS"},
		{dmcontext.ScenarioCombat, "COMBAT FOCUS", "SOCIAL FOCUS"},
		{dmcontext.ScenarioSocial, "SOCIAL FOCUS", "COMBAT FOCUS"},
	}
	for _, tt := range tests {
		t.Run(string(tt.scenario), func(t *testing.T) {
			got := SystemPrompt(tt.scenario)
			assert.True(t, strings.HasPrefix(got, BaseSystemPrompt))
			assert.Contains(t, got, tt.contains)
			assert.NotContains(t, got, tt.excludes)
		})
	}
}

func TestRenderUserMessage(t *testing.T) {
	c := actor.NewCharacter("Motu")
	c.Level = 3
	c.HitPoints = 17
	c.MaxHitPoints = 24
	c.ArmorClass = 13

	aria := actor.NewNPC("Aria", 3)
	aria.Role = "Spy"
	aria.CurrentStatus = "Undercover"

	p := &dmcontext.Payload{
		ScenarioType:   dmcontext.ScenarioGeneral,
		Character:      c,
		QuickReference: campaign.QuickReference{"current_time": "Evening", "current_location": "Docks"},
		Missions: []*campaign.Mission{
			{Title: "Find the Ledger", Status: campaign.MissionActive},
		},
		NPCs: []*actor.NPC{aria},
	}

	want := strings.Join([]string{
		"## Current Situation",
		"Time: Evening",
		"Location: Docks",
		"",
		"## Character Status",
		"Level 3 | HP: 17/24 | AC: 13",
		"",
		"## Active Missions",
		"- Find the Ledger [active]",
		"",
		"## Key NPCs",
		"- Aria ⭐⭐⭐: Spy",
		"",
		"## Player Action",
		"I search the crates",
	}, "\n")

	assert.Equal(t, want, RenderUserMessage(p, "I search the crates"))
}

func TestRenderUserMessage_SceneOverridesLocation(t *testing.T) {
	p := (&dmcontext.Payload{}).WithScene("Rain hammers the pier.", "Lighthouse")
	got := RenderUserMessage(p, "wait")

	assert.Contains(t, got, "Time: Unknown\nLocation: Lighthouse")
	assert.Contains(t, got, "## Current Scene\nRain hammers the pier.")
}

func TestRenderUserMessage_ScenarioDetails(t *testing.T) {
	c := actor.NewCharacter("Motu")
	c.Inventory = []string{"Dagger", "Rope"}
	n := actor.NewNPC("Aria", 1)
	n.CurrentStatus = "Nervous"

	combat := RenderUserMessage(&dmcontext.Payload{Character: c, NPCs: []*actor.NPC{n}, CombatFocus: true}, "go")
	assert.Contains(t, combat, "Gear: Dagger, Rope")
	assert.NotContains(t, combat, "Status: Nervous")

	social := RenderUserMessage(&dmcontext.Payload{Character: c, NPCs: []*actor.NPC{n}, NPCKnowledgeLimits: true}, "go")
	assert.NotContains(t, social, "Gear:")
	assert.Contains(t, social, "  Status: Nervous")
}
