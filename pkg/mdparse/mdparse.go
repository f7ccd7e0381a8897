// Package mdparse extracts structured values from loosely formatted markdown.
//
// Every helper is best-effort: a pattern that does not match yields a zero
// value, never an error. Callers decide which absences matter.
package mdparse

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"
)

// Section is one heading block and the text beneath it.
type Section struct {
	Groups []string // capture groups from the heading pattern, excluding the full match
	Body   string   // text after the heading line up to the next heading of the same or higher level
	Start  int      // byte offset of the heading in the source
}

// Group returns capture group i, or "" if it did not participate.
func (s Section) Group(i int) string {
	if i < 0 || i >= len(s.Groups) {
		return ""
	}
	return strings.TrimSpace(s.Groups[i])
}

// Sections finds every match of heading and slices the text that follows it.
// A section ends at the next line starting with level or fewer '#'
// characters, or at the end of the document.
func Sections(content string, heading *regexp.Regexp, level int) []Section {
	locs := heading.FindAllStringSubmatchIndex(content, -1)
	if len(locs) == 0 {
		return nil
	}

	sections := make([]Section, 0, len(locs))
	for _, loc := range locs {
		groups := make([]string, 0, len(loc)/2-1)
		for g := 2; g+1 < len(loc); g += 2 {
			if loc[g] < 0 {
				groups = append(groups, "")
				continue
			}
			groups = append(groups, content[loc[g]:loc[g+1]])
		}

		bodyStart := loc[1]
		if nl := strings.IndexByte(content[bodyStart:], '\n'); nl >= 0 {
			bodyStart += nl + 1
		} else {
			bodyStart = len(content)
		}
		bodyEnd := nextHeading(content, bodyStart, level)

		sections = append(sections, Section{
			Groups: groups,
			Body:   content[bodyStart:bodyEnd],
			Start:  loc[0],
		})
	}
	return sections
}

// nextHeading returns the offset of the next heading at or above level, or len(content).
func nextHeading(content string, from, level int) int {
	pos := from
	for pos < len(content) {
		line := content[pos:]
		if nl := strings.IndexByte(line, '\n'); nl >= 0 {
			line = line[:nl]
		}
		if hashes := headingLevel(line); hashes > 0 && hashes <= level {
			return pos
		}
		pos += len(line) + 1
	}
	return len(content)
}

func headingLevel(line string) int {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n == 0 || n >= len(line) || line[n] != ' ' {
		return 0
	}
	return n
}

// Heading returns the body of the first "## Title" style heading whose text
// contains title (case-insensitive), at any level.
func Heading(content, title string) (string, bool) {
	title = strings.ToLower(title)
	for _, loc := range anyHeading.FindAllStringSubmatchIndex(content, -1) {
		if !strings.Contains(strings.ToLower(content[loc[4]:loc[5]]), title) {
			continue
		}
		level := loc[3] - loc[2]
		bodyStart := loc[1]
		if bodyStart < len(content) && content[bodyStart] == '\n' {
			bodyStart++
		}
		return content[bodyStart:nextHeading(content, bodyStart, level)], true
	}
	return "", false
}

var anyHeading = regexp.MustCompile(`(?m)^(#{1,6}) +([^\n]*)$`)

var fieldCache sync.Map // label -> *regexp.Regexp

func fieldPattern(label string) *regexp.Regexp {
	if re, ok := fieldCache.Load(label); ok {
		return re.(*regexp.Regexp)
	}
	// Matches **Label:** value and **Label**: value
	re := regexp.MustCompile(`(?m)\*\*` + regexp.QuoteMeta(label) + `(?::\*\*|\*\*:)[ \t]*(.*?)[ \t]*$`)
	fieldCache.Store(label, re)
	return re
}

// Field returns the value of the first bold-labelled line "**Label:** value".
func Field(content, label string) (string, bool) {
	m := fieldPattern(label).FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// FieldOr returns Field's value or def when absent or empty.
func FieldOr(content, label, def string) string {
	if v, ok := Field(content, label); ok && v != "" {
		return v
	}
	return def
}

// FirstField tries labels in order and returns the first present value.
func FirstField(content string, labels ...string) (string, bool) {
	for _, l := range labels {
		if v, ok := Field(content, l); ok {
			return v, true
		}
	}
	return "", false
}

var leadingInt = regexp.MustCompile(`-?\d+`)

// Int parses the first integer appearing in s.
func Int(s string) (int, bool) {
	m := leadingInt.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

var fractionPattern = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)

// Fraction parses "a/b" out of s.
func Fraction(s string) (int, int, bool) {
	m := fractionPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	return a, b, true
}

var kvPattern = regexp.MustCompile(`(?m)\*\*([^*\n]+?)(?::\*\*|\*\*:)[ \t]*(.*?)[ \t]*$`)

// KeyValues collects every "**Key:** value" line into a map keyed by
// SnakeCase(key). The first occurrence of a key wins.
func KeyValues(content string) map[string]string {
	out := map[string]string{}
	for _, m := range kvPattern.FindAllStringSubmatch(content, -1) {
		key := SnakeCase(m[1])
		if key == "" {
			continue
		}
		if _, seen := out[key]; !seen {
			out[key] = strings.TrimSpace(m[2])
		}
	}
	return out
}

var listItem = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+(.+?)[ \t]*$`)

// ListItems returns the text of each bullet line, excluding checkbox markers.
func ListItems(content string) []string {
	var items []string
	for _, m := range listItem.FindAllStringSubmatch(content, -1) {
		text := m[1]
		if c, ok := parseCheckbox(text); ok {
			text = c.Text
		}
		if text != "" {
			items = append(items, text)
		}
	}
	return items
}

// ListAfter returns the bullet list immediately following a "**Label:**" line.
// The list ends at the first non-bullet, non-blank line.
func ListAfter(content, label string) []string {
	loc := fieldPattern(label).FindStringIndex(content)
	if loc == nil {
		return nil
	}
	rest := content[loc[1]:]
	var items []string
	for _, line := range strings.Split(rest, "\n")[1:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(items) > 0 {
				break
			}
			continue
		}
		m := listItem.FindStringSubmatch(line)
		if m == nil {
			break
		}
		text := m[1]
		if c, ok := parseCheckbox(text); ok {
			text = c.Text
		}
		items = append(items, text)
	}
	return items
}

// Checkbox is a "- [ ] task" or "- [x] task" list entry.
type Checkbox struct {
	Text    string
	Checked bool
}

var checkboxPattern = regexp.MustCompile(`^\[([ xX])\][ \t]*(.*)$`)

func parseCheckbox(text string) (Checkbox, bool) {
	m := checkboxPattern.FindStringSubmatch(text)
	if m == nil {
		return Checkbox{}, false
	}
	return Checkbox{Text: strings.TrimSpace(m[2]), Checked: m[1] != " "}, true
}

// Checkboxes returns every task-list entry in document order.
func Checkboxes(content string) []Checkbox {
	var boxes []Checkbox
	for _, m := range listItem.FindAllStringSubmatch(content, -1) {
		if c, ok := parseCheckbox(m[1]); ok && c.Text != "" {
			boxes = append(boxes, c)
		}
	}
	return boxes
}

// SplitList splits a comma or semicolon separated value, dropping blanks.
func SplitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SnakeCase lowercases s and joins its words with underscores.
func SnakeCase(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, "_")
}

// Near reports whether needle occurs within window bytes after offset.
func Near(content string, offset, window int, needle string) bool {
	if offset < 0 || offset >= len(content) {
		return false
	}
	end := min(len(content), offset+window)
	return strings.Contains(content[offset:end], needle)
}
