package asl

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
)

// ErrUnknownLevel is returned when a practice level name is not recognised.
var ErrUnknownLevel = errors.New("unknown practice level")

// Level groups letters by difficulty.
type Level struct {
	Name        string   `json:"name"`
	Letters     []string `json:"letters"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
}

var levels = []Level{
	{"BEGINNER", []string{"A", "B", "C", "I", "O"}, "Simple hand shapes, perfect for starting", "🌱"},
	{"INTERMEDIATE", []string{"D", "E", "F", "K", "L"}, "More complex shapes, good for practice", "⭐"},
	{"ADVANCED", []string{"J", "Q", "R", "X", "Z"}, "Challenging letters with motion", "🏆"},
}

// Levels returns the practice levels from easiest to hardest.
func Levels() []Level {
	out := make([]Level, len(levels))
	for i, l := range levels {
		l.Letters = append([]string(nil), l.Letters...)
		out[i] = l
	}
	return out
}

// LevelByName looks a level up case-insensitively.
func LevelByName(name string) (Level, error) {
	for _, l := range levels {
		if strings.EqualFold(l.Name, name) {
			return l, nil
		}
	}
	return Level{}, ErrUnknownLevel
}

// PracticeState is a point-in-time view of a drill.
type PracticeState struct {
	Active   bool   `json:"active"`
	Level    string `json:"level,omitempty"`
	Target   string `json:"target,omitempty"`
	Score    int    `json:"score"`
	Attempts int    `json:"attempts"`
}

// Practice drills the user on random letters of one level. A correct
// observation scores a point and moves to a new target.
type Practice struct {
	mu     sync.Mutex
	intn   func(n int) int
	level  *Level
	target string
	score  int
	tries  int
}

// NewPractice creates an idle drill. intn picks the next target index in
// [0, n); nil uses math/rand/v2.
func NewPractice(intn func(n int) int) *Practice {
	if intn == nil {
		intn = rand.IntN
	}
	return &Practice{intn: intn}
}

// Start begins a drill at the named level, resetting the score.
func (p *Practice) Start(name string) (PracticeState, error) {
	l, err := LevelByName(name)
	if err != nil {
		return PracticeState{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.level = &l
	p.score = 0
	p.tries = 0
	p.target = p.pick()
	return p.snapshot(), nil
}

// Observe checks a classified letter against the current target. Unknown
// results are ignored. It returns false when no drill is running.
func (p *Practice) Observe(letter string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.level == nil || letter == "" || letter == Unknown {
		return false
	}
	p.tries++
	if letter != p.target {
		return false
	}
	p.score++
	p.target = p.pick()
	return true
}

// Reset stops the drill.
func (p *Practice) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.level = nil
	p.target = ""
	p.score = 0
	p.tries = 0
}

// Snapshot returns the current drill state.
func (p *Practice) Snapshot() PracticeState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

func (p *Practice) snapshot() PracticeState {
	if p.level == nil {
		return PracticeState{}
	}
	return PracticeState{
		Active:   true,
		Level:    p.level.Name,
		Target:   p.target,
		Score:    p.score,
		Attempts: p.tries,
	}
}

func (p *Practice) pick() string {
	letters := p.level.Letters
	i := p.intn(len(letters))
	if i < 0 || i >= len(letters) {
		i = 0
	}
	return letters[i]
}
