package actor

import "strings"

const (
	MinTrust = -5
	MaxTrust = 5
)

// NPC represents a non-player character from the campaign's NPC directory
type NPC struct {
	Name              string   `json:"name"`
	Role              string   `json:"role,omitempty"`
	Relationship      string   `json:"relationship,omitempty"`
	TrustLevel        int      `json:"trust_level"`
	Capabilities      []string `json:"capabilities,omitempty"`
	CurrentStatus     string   `json:"current_status,omitempty"`
	IntelligenceValue string   `json:"intelligence_value,omitempty"` // what the NPC knows that matters
	Notes             string   `json:"notes,omitempty"`              // bracketed heading tag, e.g. [ALLY]
	Location          string   `json:"location,omitempty"`
}

// NewNPC creates an NPC with a clamped trust level.
func NewNPC(name string, trust int) *NPC {
	return &NPC{Name: name, TrustLevel: ClampTrust(trust)}
}

// ClampTrust bounds a trust value to MinTrust..MaxTrust.
func ClampTrust(v int) int {
	return max(MinTrust, min(MaxTrust, v))
}

// SetTrust assigns a clamped trust level.
func (n *NPC) SetTrust(v int) {
	n.TrustLevel = ClampTrust(v)
}

// AdjustTrust shifts trust by delta and returns the clamped result.
func (n *NPC) AdjustTrust(delta int) int {
	n.SetTrust(n.TrustLevel + delta)
	return n.TrustLevel
}

// Stars renders positive trust as star glyphs, matching the directory format.
func (n *NPC) Stars() string {
	if n.TrustLevel <= 0 {
		return ""
	}
	return strings.Repeat("⭐", n.TrustLevel)
}
