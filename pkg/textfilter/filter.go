// Package textfilter tidies model output before it is shown or stored.
package textfilter

import (
	"regexp"
	"strings"
)

var (
	// "DM:", "**Dungeon Master:**", "Narrator -" and similar at the very start
	speakerLabel = regexp.MustCompile(`(?i)^(?:\*\*)?(?:dm|dungeon master|game master|gm|narrator)(?:\*\*)?\s*(?::|-)(?:\*\*)?\s*`)
	fenced       = regexp.MustCompile("(?s)^```[A-Za-z]*\\s*\\n(.*?)\\n?```$")
	trailingWS   = regexp.MustCompile(`[ \t]+\n`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
)

// CleanNarration normalizes a DM reply. A reply wrapped entirely in a code
// fence is unwrapped and a leading speaker label is dropped, since the console
// adds its own. Blank-line runs collapse to one empty line.
func CleanNarration(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)

	if m := fenced.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}
	text = speakerLabel.ReplaceAllString(text, "")
	text = trailingWS.ReplaceAllString(text, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// IsRefusal reports whether the reply reads as the model stepping out of
// character rather than narrating.
func IsRefusal(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, prefix := range refusalPrefixes {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

var refusalPrefixes = []string{
	"as an ai",
	"i'm sorry, but i can't",
	"i am sorry, but i cannot",
	"i cannot continue",
	"i can't continue",
}
