package session

import (
	"regexp"
	"strings"

	"github.com/jwebster45206/solo-dm/pkg/actor"
	"github.com/jwebster45206/solo-dm/pkg/campaign"
	"github.com/jwebster45206/solo-dm/pkg/dmcontext"
	"github.com/jwebster45206/solo-dm/pkg/state"
)

// sessionSource overlays session-scoped NPC trust and mission progress on
// the campaign loader.
type sessionSource struct {
	dmcontext.Source
	trust    map[string]int
	progress map[string]*state.MissionProgress
}

func (m *Manager) source(sess *state.GameSession) *sessionSource {
	return &sessionSource{Source: m.campaign, trust: sess.NPCTrust, progress: sess.MissionProgress}
}

// NPCs returns copies of the loader's NPCs with session trust applied.
func (s *sessionSource) NPCs() []*actor.NPC {
	npcs := s.Source.NPCs()
	out := make([]*actor.NPC, 0, len(npcs))
	for _, n := range npcs {
		if n == nil {
			continue
		}
		cp := *n
		if t, ok := s.trust[n.Name]; ok {
			cp.SetTrust(t)
		}
		out = append(out, &cp)
	}
	return out
}

// Missions returns copies of the loader's missions with session progress applied.
func (s *sessionSource) Missions() []*campaign.Mission {
	missions := s.Source.Missions()
	out := make([]*campaign.Mission, 0, len(missions))
	for _, mi := range missions {
		if mi == nil {
			continue
		}
		cp := mi.Clone()
		if p, ok := s.progress[cp.Title]; ok {
			for _, obj := range p.CompletedObjectives {
				_ = cp.CompleteObjective(obj)
			}
			cp.ProgressNotes = append(cp.ProgressNotes, p.Notes...)
		}
		out = append(out, cp)
	}
	return out
}

func findMission(missions []*campaign.Mission, title string) *campaign.Mission {
	title = strings.TrimSpace(title)
	for _, mi := range missions {
		if strings.EqualFold(mi.Name(), title) {
			return mi
		}
	}
	return nil
}

func findNPC(npcs []*actor.NPC, name string) *actor.NPC {
	name = strings.TrimSpace(name)
	for _, n := range npcs {
		if strings.EqualFold(n.Name, name) {
			return n
		}
	}
	return nil
}

// mentionedNPCs returns the names of NPCs that appear as whole words in text.
func mentionedNPCs(src dmcontext.Source, text string) []string {
	var names []string
	for _, n := range src.NPCs() {
		if n.Name == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(n.Name) + `\b`)
		if err != nil {
			continue
		}
		if re.MatchString(text) {
			names = append(names, n.Name)
		}
	}
	return names
}
