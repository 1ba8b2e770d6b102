package asl

// Tip is hand-shape guidance for one letter.
type Tip struct {
	Letter         string `json:"letter"`
	Position       string `json:"position"`
	CommonMistakes string `json:"common_mistakes"`
	Tip            string `json:"tip"`
}

var tips = []Tip{
	{"A", "Make a fist with thumb resting on the side", "Don't let fingers spread, keep thumb relaxed", "Think of holding a small ball tightly"},
	{"B", "Hold all fingers straight up, thumb tucked", "Don't spread fingers too wide, keep them together", "Imagine your hand is a flat board"},
	{"C", "Curve all fingers and thumb to form C shape", "Don't make it too tight or too open", "Like holding a small cup"},
	{"D", "Index finger up, other fingers together", "Keep other fingers together, not spread", "Like pointing up to the sky"},
	{"E", "Curl all fingers, thumb tucked under", "Don't let fingers spread while curling", "Like a bird's claw"},
	{"F", "Touch thumb to index, other fingers up", "Keep other fingers straight and together", "Like making the 'OK' sign but with fingers up"},
	{"G", "Point index finger to side, thumb out", "Don't point forward, keep to the side", "Like a gun pointing sideways"},
	{"H", "Index and middle finger together, pointing side", "Keep fingers parallel, not crossed", "Like the number 2 rotated sideways"},
	{"I", "Pinky up, other fingers closed", "Keep other fingers tight in fist", "Like a formal pinky up gesture"},
	{"J", "Like I, but trace a J shape", "Start with pinky up, then trace", "Think of drawing J in the air"},
	{"K", "Index and middle up in V, thumb between", "Don't let fingers touch", "Peace sign with thumb between fingers"},
	{"L", "Index up, thumb out to side", "Keep angle at 90 degrees", "Make a real L shape"},
	{"M", "Three fingers over thumb", "Don't show thumb, keep fingers together", "Like covering thumb with 3 fingers"},
	{"N", "Two fingers over thumb", "Keep fingers together, pointing down", "Like M but with two fingers only"},
	{"O", "All fingers curved to meet thumb", "Make a clear circle, not too tight", "Like making a bubble with your hand"},
	{"P", "Point index down, thumb out", "Keep thumb visible from side", "Like K rotated down"},
	{"Q", "Index down at side, thumb out", "Keep hand vertical", "Like G pointing down"},
	{"R", "Cross index and middle finger", "Keep fingers crossed, not just together", "Like crossing fingers for luck"},
	{"S", "Fist with thumb in front of fingers", "Keep thumb in front, not to side", "Like A but thumb in front"},
	{"T", "Thumb between index and middle", "Keep thumb visible", "Like putting thumb between 2 fingers"},
	{"U", "Index and middle up together", "Keep fingers close and parallel", "Peace sign but fingers together"},
	{"V", "Index and middle in V shape", "Don't make V too wide or narrow", "Classic peace sign"},
	{"W", "Index, middle, and ring fingers up", "Keep fingers spread evenly", "Think of number 3 but spread out"},
	{"X", "Hook index finger, other fingers closed", "Make clear hook shape", "Like holding a tiny hook"},
	{"Y", "Thumb and pinky out, others closed", "Keep thumb and pinky straight", "Like a surfer's 'hang loose' sign"},
	{"Z", "Index finger traces Z shape", "Make clear angles in Z motion", "Draw Z in the air"},
}

// Tips returns guidance for every letter, A to Z.
func Tips() []Tip {
	out := make([]Tip, len(tips))
	copy(out, tips)
	return out
}

// TipFor returns the guidance for letter. Lookups are case-sensitive; callers
// normalise to upper case.
func TipFor(letter string) (Tip, bool) {
	for _, t := range tips {
		if t.Letter == letter {
			return t, true
		}
	}
	return Tip{}, false
}
