package asl

import "math"

// Empirical thresholds of the rule table.
const (
	// SidewaysAngle is the |angle| above which the table calls a finger
	// "sideways". Angles are image space with 0 pointing right and -90
	// straight up, so |angle| > 45 selects a finger nearer vertical than
	// horizontal, or one pointing left. The name matches the recorded rule set.
	SidewaysAngle = 45.0
	// LShapeAngle is the thumb/index angle gap above which the hand forms an L.
	LShapeAngle = 60.0
	// CrossedGap is the tip-x gap below which index and middle count as crossed.
	CrossedGap = 10.0
	// SpreadGap is the tip-x gap separating together (<) from spread (>) fingers.
	SpreadGap = 20.0
)

// Rule is one entry of the letter table.
type Rule struct {
	Letter     string `json:"letter"`
	Confidence int    `json:"confidence"`
	Summary    string `json:"summary"`

	match func(Features) bool
}

// Matches reports whether the rule's predicate holds for f.
func (r Rule) Matches(f Features) bool {
	return r.match(f)
}

// Hand shapes shared by several rules. Unlisted flags are unconstrained.

func noneExtended(f Features) bool {
	return !f.IndexExtended && !f.MiddleExtended && !f.RingExtended && !f.PinkyExtended
}

func allExtended(f Features) bool {
	return f.IndexExtended && f.MiddleExtended && f.RingExtended && f.PinkyExtended
}

func onlyIndex(f Features) bool {
	return f.IndexExtended && !f.MiddleExtended && !f.RingExtended && !f.PinkyExtended
}

func onlyPinky(f Features) bool {
	return !f.IndexExtended && !f.MiddleExtended && !f.RingExtended && f.PinkyExtended
}

func indexAndMiddle(f Features) bool {
	return f.IndexExtended && f.MiddleExtended && !f.RingExtended && !f.PinkyExtended
}

func allBent(f Features) bool {
	return f.IndexBent && f.MiddleBent && f.RingBent && f.PinkyBent
}

func tipGap(f Features) float64 {
	return math.Abs(f.IndexX - f.MiddleX)
}

// rules is evaluated top to bottom and the first match wins; earlier letters
// take priority.
//
// Known defect: several letters share a predicate (C, E and O; P, T and X;
// G and Z) and A, B, D, I and K are broad enough to shadow later letters
// entirely. The table is reproduced as-is so results stay comparable with
// recorded sessions; telling these letters apart needs features the
// extractor does not compute (thumb position relative to the palm, motion).
var rules = []Rule{
	{"A", 87, "no finger raised", noneExtended},
	{"B", 92, "all four fingers raised", allExtended},
	{"C", 85, "no finger raised, all four bent", func(f Features) bool {
		return noneExtended(f) && allBent(f)
	}},
	{"D", 88, "index raised alone", onlyIndex},
	{"E", 86, "no finger raised, all four bent", func(f Features) bool {
		return noneExtended(f) && allBent(f)
	}},
	{"F", 84, "middle, ring and pinky raised, index bent", func(f Features) bool {
		return !f.IndexExtended && f.MiddleExtended && f.RingExtended && f.PinkyExtended && f.IndexBent
	}},
	{"G", 83, "index raised alone, |index angle| over 45", func(f Features) bool {
		return onlyIndex(f) && math.Abs(f.IndexAngle) > SidewaysAngle
	}},
	{"H", 82, "index and middle raised, |index angle| over 45", func(f Features) bool {
		return indexAndMiddle(f) && math.Abs(f.IndexAngle) > SidewaysAngle
	}},
	{"I", 88, "pinky raised alone", onlyPinky},
	{"J", 80, "pinky raised alone, |index angle| over 45", func(f Features) bool {
		return onlyPinky(f) && math.Abs(f.IndexAngle) > SidewaysAngle
	}},
	{"K", 85, "index and middle raised, tips spread", func(f Features) bool {
		return indexAndMiddle(f) && tipGap(f) > SpreadGap
	}},
	{"L", 89, "index raised alone, thumb at an angle", func(f Features) bool {
		return onlyIndex(f) && math.Abs(f.ThumbAngle-f.IndexAngle) > LShapeAngle
	}},
	{"M", 84, "no finger raised, index, middle and ring bent", func(f Features) bool {
		return noneExtended(f) && f.IndexBent && f.MiddleBent && f.RingBent
	}},
	{"N", 83, "no finger raised, index and middle bent, ring straight", func(f Features) bool {
		return noneExtended(f) && f.IndexBent && f.MiddleBent && !f.RingBent
	}},
	{"O", 87, "no finger raised, all four bent", func(f Features) bool {
		return noneExtended(f) && allBent(f)
	}},
	{"P", 82, "no finger raised, index bent", func(f Features) bool {
		return noneExtended(f) && f.IndexBent
	}},
	{"Q", 81, "no finger raised, index bent, |thumb angle| over 45", func(f Features) bool {
		return noneExtended(f) && f.IndexBent && math.Abs(f.ThumbAngle) > SidewaysAngle
	}},
	{"R", 84, "index and middle raised, tips crossed", func(f Features) bool {
		return indexAndMiddle(f) && tipGap(f) < CrossedGap
	}},
	{"S", 86, "no finger raised", noneExtended},
	{"T", 83, "no finger raised, index bent", func(f Features) bool {
		return noneExtended(f) && f.IndexBent
	}},
	{"U", 88, "index and middle raised, tips together", func(f Features) bool {
		return indexAndMiddle(f) && tipGap(f) < SpreadGap
	}},
	{"V", 90, "index and middle raised, tips spread", func(f Features) bool {
		return indexAndMiddle(f) && tipGap(f) > SpreadGap
	}},
	{"W", 87, "index, middle and ring raised", func(f Features) bool {
		return f.IndexExtended && f.MiddleExtended && f.RingExtended && !f.PinkyExtended
	}},
	{"X", 82, "no finger raised, index bent", func(f Features) bool {
		return noneExtended(f) && f.IndexBent
	}},
	{"Y", 85, "pinky raised alone, |thumb angle| over 45", func(f Features) bool {
		return onlyPinky(f) && math.Abs(f.ThumbAngle) > SidewaysAngle
	}},
	{"Z", 80, "index raised alone, |index angle| over 45", func(f Features) bool {
		return onlyIndex(f) && math.Abs(f.IndexAngle) > SidewaysAngle
	}},
}

// Rules returns a copy of the letter table in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// RuleFor returns the rule for letter.
func RuleFor(letter string) (Rule, bool) {
	for _, r := range rules {
		if r.Letter == letter {
			return r, true
		}
	}
	return Rule{}, false
}
