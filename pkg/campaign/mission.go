package campaign

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// MissionStatus is the lifecycle state of a mission.
type MissionStatus string

const (
	MissionNotStarted MissionStatus = "not-started"
	MissionActive     MissionStatus = "active"
	MissionCompleted  MissionStatus = "completed"
	MissionFailed     MissionStatus = "failed"
	MissionOnHold     MissionStatus = "on-hold"
)

// ParseMissionStatus maps a free-form status tag such as "ACTIVE - URGENT"
// or "ON HOLD" onto a MissionStatus. Unrecognized tags are treated as active.
func ParseMissionStatus(tag string) MissionStatus {
	t := strings.ToUpper(tag)
	switch {
	case strings.Contains(t, "COMPLETE") || strings.Contains(t, "DONE"):
		return MissionCompleted
	case strings.Contains(t, "FAIL"):
		return MissionFailed
	case strings.Contains(t, "HOLD") || strings.Contains(t, "PAUSED") || strings.Contains(t, "DORMANT"):
		return MissionOnHold
	case strings.Contains(t, "NOT STARTED") || strings.Contains(t, "NOT-STARTED") ||
		strings.Contains(t, "PENDING") || strings.Contains(t, "AVAILABLE"):
		return MissionNotStarted
	default:
		return MissionActive
	}
}

// ProgressNote is a timestamped free-text progress entry.
type ProgressNote struct {
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note"`
}

// Mission is a quest parsed from the missions file.
type Mission struct {
	Title               string         `json:"title"`
	Status              MissionStatus  `json:"status"`
	StatusTag           string         `json:"status_tag,omitempty"` // raw bracketed tag from the heading
	Priority            int            `json:"priority"`             // 1 is most urgent
	Deadline            string         `json:"deadline,omitempty"`
	Objectives          []string       `json:"objectives,omitempty"`
	CompletedObjectives []string       `json:"completed_objectives,omitempty"`
	SuccessMetrics      []string       `json:"success_metrics,omitempty"`
	ProgressNotes       []ProgressNote `json:"progress_notes,omitempty"`
}

// Name returns the mission title. Older campaign files call it a name.
func (m *Mission) Name() string {
	return m.Title
}

// Clone returns a deep copy.
func (m *Mission) Clone() *Mission {
	cp := *m
	cp.Objectives = slices.Clone(m.Objectives)
	cp.CompletedObjectives = slices.Clone(m.CompletedObjectives)
	cp.SuccessMetrics = slices.Clone(m.SuccessMetrics)
	cp.ProgressNotes = slices.Clone(m.ProgressNotes)
	return &cp
}

// IsActive reports whether the mission is currently being pursued.
func (m *Mission) IsActive() bool {
	return m.Status == MissionActive
}

// CompleteObjective marks a listed objective as done.
// Completing an already completed objective is a no-op.
func (m *Mission) CompleteObjective(objective string) error {
	if !slices.Contains(m.Objectives, objective) {
		return fmt.Errorf("objective %q is not part of mission %q", objective, m.Title)
	}
	if slices.Contains(m.CompletedObjectives, objective) {
		return nil
	}
	m.CompletedObjectives = append(m.CompletedObjectives, objective)
	if len(m.CompletedObjectives) == len(m.Objectives) {
		m.Status = MissionCompleted
	}
	return nil
}

// CompletionPercentage returns completed objectives as a percentage of all objectives.
func (m *Mission) CompletionPercentage() float64 {
	if len(m.Objectives) == 0 {
		if m.Status == MissionCompleted {
			return 100
		}
		return 0
	}
	return float64(len(m.CompletedObjectives)) / float64(len(m.Objectives)) * 100
}

// AddProgressNote appends a timestamped note.
func (m *Mission) AddProgressNote(note string, at time.Time) {
	m.ProgressNotes = append(m.ProgressNotes, ProgressNote{Timestamp: at, Note: note})
}

// Summary renders "- Title [TAG]" for prompts.
func (m *Mission) Summary() string {
	tag := m.StatusTag
	if tag == "" {
		tag = strings.ToUpper(string(m.Status))
	}
	return fmt.Sprintf("%s [%s]", m.Title, tag)
}
