// Package dice rolls tabletop dice with advantage, disadvantage and
// critical detection.
//
// A Roller is deterministic with respect to its seed: two rollers built
// with the same seed produce the same sequence of results.
package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"strings"
	"sync"
)

// Mode selects how a d20 is rolled.
type Mode int

const (
	Normal Mode = iota
	Advantage
	Disadvantage
)

func (m Mode) String() string {
	switch m {
	case Advantage:
		return "advantage"
	case Disadvantage:
		return "disadvantage"
	}
	return "normal"
}

// ModeFor combines advantage and disadvantage flags. Both together cancel out.
func ModeFor(advantage, disadvantage bool) Mode {
	switch {
	case advantage && !disadvantage:
		return Advantage
	case disadvantage && !advantage:
		return Disadvantage
	}
	return Normal
}

// ParseMode accepts "adv", "advantage", "dis", "disadvantage" or "".
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return Normal, true
	case "adv", "advantage":
		return Advantage, true
	case "dis", "disadv", "disadvantage":
		return Disadvantage, true
	}
	return Normal, false
}

// Roll is the immutable result of one roll.
type Roll struct {
	Spec
	Mode     Mode  `json:"mode"`
	Rolls    []int `json:"rolls"`    // every die thrown; two entries under advantage or disadvantage
	Kept     []int `json:"kept"`     // faces that count toward the total
	Total    int   `json:"total"`    // sum(Kept) + Modifier
	Critical bool  `json:"critical"` // natural 20 on a single d20
	Fumble   bool  `json:"fumble"`   // natural 1 on a single d20
}

// Natural returns the first kept face, the number that decides crits.
func (r Roll) Natural() int {
	if len(r.Kept) == 0 {
		return 0
	}
	return r.Kept[0]
}

// Applied is Total floored at zero, the amount dealt when the roll is
// damage or healing.
func (r Roll) Applied() int {
	return max(0, r.Total)
}

// Roller produces rolls from a seeded source. It is safe for concurrent use.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRoller returns a roller seeded from crypto/rand.
func NewRoller() (*Roller, error) {
	seed, err := NewSeed()
	if err != nil {
		return nil, err
	}
	return NewSeededRoller(seed), nil
}

// NewSeededRoller returns a deterministic roller.
func NewSeededRoller(seed int64) *Roller {
	return &Roller{rng: rand.New(rand.NewSource(seed))}
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func (r *Roller) die(sides int) int {
	return r.rng.Intn(sides) + 1
}

// Roll rolls spec under mode. Advantage and disadvantage require a single
// d20 and otherwise fail with ErrInvalidAdvantageUse.
func (r *Roller) Roll(spec Spec, mode Mode) (Roll, error) {
	if err := spec.Validate(); err != nil {
		return Roll{}, err
	}
	if mode != Normal && !spec.IsSingleD20() {
		return Roll{}, fmt.Errorf("%w: got %s", ErrInvalidAdvantageUse, spec)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	result := Roll{Spec: spec, Mode: mode}
	if mode == Normal {
		result.Rolls = make([]int, spec.Count)
		for i := range result.Rolls {
			result.Rolls[i] = r.die(spec.Sides)
		}
		result.Kept = append([]int(nil), result.Rolls...)
	} else {
		a, b := r.die(20), r.die(20)
		result.Rolls = []int{a, b}
		if mode == Advantage {
			result.Kept = []int{max(a, b)}
		} else {
			result.Kept = []int{min(a, b)}
		}
	}

	for _, v := range result.Kept {
		result.Total += v
	}
	result.Total += spec.Modifier

	if spec.IsSingleD20() {
		result.Critical = result.Kept[0] == 20
		result.Fumble = result.Kept[0] == 1
	}
	return result, nil
}

// RollNotation parses notation and rolls it.
func (r *Roller) RollNotation(notation string, mode Mode) (Roll, error) {
	spec, err := ParseNotation(notation)
	if err != nil {
		return Roll{}, err
	}
	return r.Roll(spec, mode)
}

// Intn returns a uniform value in [0, n). Used by table lookups.
func (r *Roller) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}
