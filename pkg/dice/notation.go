package dice

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	MaxCount = 100
	MaxSides = 100
)

var (
	ErrInvalidNotation     = errors.New("invalid dice notation")
	ErrInvalidAdvantageUse = errors.New("advantage and disadvantage apply only to a single d20")
)

var notationPattern = regexp.MustCompile(`^(\d*)d(\d+)([+-]\d+)?$`)

// Spec describes one roll: Count dice of Sides faces plus Modifier.
type Spec struct {
	Count    int `json:"count"`
	Sides    int `json:"sides"`
	Modifier int `json:"modifier"`
}

// D20 is a single twenty-sided die with a modifier.
func D20(modifier int) Spec {
	return Spec{Count: 1, Sides: 20, Modifier: modifier}
}

// Validate checks count and sides against the supported range.
func (s Spec) Validate() error {
	if s.Count <= 0 || s.Sides <= 0 {
		return fmt.Errorf("%w: count and sides must be positive", ErrInvalidNotation)
	}
	if s.Count > MaxCount {
		return fmt.Errorf("%w: at most %d dice", ErrInvalidNotation, MaxCount)
	}
	if s.Sides > MaxSides {
		return fmt.Errorf("%w: at most %d sides", ErrInvalidNotation, MaxSides)
	}
	return nil
}

// IsSingleD20 reports whether the spec is exactly one d20.
func (s Spec) IsSingleD20() bool {
	return s.Count == 1 && s.Sides == 20
}

// String renders the spec in standard notation, e.g. "2d6+3".
func (s Spec) String() string {
	var sb strings.Builder
	if s.Count != 1 {
		sb.WriteString(strconv.Itoa(s.Count))
	}
	sb.WriteString("d")
	sb.WriteString(strconv.Itoa(s.Sides))
	switch {
	case s.Modifier > 0:
		sb.WriteString("+" + strconv.Itoa(s.Modifier))
	case s.Modifier < 0:
		sb.WriteString(strconv.Itoa(s.Modifier))
	}
	return sb.String()
}

// ParseNotation parses "[count]d<sides>[+|-modifier]". Whitespace is ignored
// and matching is case-insensitive. Count defaults to 1, modifier to 0.
func ParseNotation(notation string) (Spec, error) {
	clean := strings.ToLower(strings.Join(strings.Fields(notation), ""))
	m := notationPattern.FindStringSubmatch(clean)
	if m == nil {
		return Spec{}, fmt.Errorf("%w: %q", ErrInvalidNotation, notation)
	}

	spec := Spec{Count: 1}
	var err error
	if m[1] != "" {
		if spec.Count, err = strconv.Atoi(m[1]); err != nil {
			return Spec{}, fmt.Errorf("%w: %q", ErrInvalidNotation, notation)
		}
	}
	if spec.Sides, err = strconv.Atoi(m[2]); err != nil {
		return Spec{}, fmt.Errorf("%w: %q", ErrInvalidNotation, notation)
	}
	if m[3] != "" {
		if spec.Modifier, err = strconv.Atoi(m[3]); err != nil {
			return Spec{}, fmt.Errorf("%w: %q", ErrInvalidNotation, notation)
		}
	}

	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}
