package textfilter

import (
	"testing"
)

func TestCleanNarration(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain narration untouched",
			input:    "The tide is turning.",
			expected: "The tide is turning.",
		},
		{
			name:     "surrounding whitespace",
			input:    "\n\n  The tide is turning.  \n",
			expected: "The tide is turning.",
		},
		{
			name:     "DM label",
			input:    "DM: The tide is turning.",
			expected: "The tide is turning.",
		},
		{
			name:     "bold dungeon master label",
			input:    "**Dungeon Master:** The tide is turning.",
			expected: "The tide is turning.",
		},
		{
			name:     "narrator dash label",
			input:    "Narrator - The tide is turning.",
			expected: "The tide is turning.",
		},
		{
			name:     "NPC speaker kept",
			input:    "Aria: Keep your voice down.",
			expected: "Aria: Keep your voice down.",
		},
		{
			name:     "label only at start",
			input:    "The guard shouts.\nDM: note this",
			expected: "The guard shouts.\nDM: note this",
		},
		{
			name:     "word starting with dm is not a label",
			input:    "Dmitri: Over here!",
			expected: "Dmitri: Over here!",
		},
		{
			name:     "fenced reply",
			input:    "```markdown\nThe door creaks open.\n```",
			expected: "The door creaks open.",
		},
		{
			name:     "crlf and blank runs",
			input:    "First.\r\n\r\n\r\n\r\nSecond.   \r\nThird.",
			expected: "First.\n\nSecond.\nThird.",
		},
		{
			name:     "empty",
			input:    "   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanNarration(tt.input); got != tt.expected {
				t.Errorf("CleanNarration(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsRefusal(t *testing.T) {
	tests := map[string]bool{
		"As an AI language model, I cannot roleplay that.": true,
		"I'm sorry, but I can't help with that.":           true,
		"  i cannot continue this scene":                   true,
		"The innkeeper is sorry, but cannot help you.":     false,
		"":                                                 false,
	}
	for input, want := range tests {
		if got := IsRefusal(input); got != want {
			t.Errorf("IsRefusal(%q) = %v, want %v", input, got, want)
		}
	}
}
